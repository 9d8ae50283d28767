package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"marquee/internal/textutil"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeLogging()
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeCategories()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, "marquee.db")
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockFile) == "" {
		c.Paths.LockFile = filepath.Join(c.Paths.DataDir, "update.lock")
	}
	if c.Paths.LockFile, err = expandPath(c.Paths.LockFile); err != nil {
		return fmt.Errorf("paths.lock_file: %w", err)
	}
	if c.Paths.OverridesFile, err = expandPath(strings.TrimSpace(c.Paths.OverridesFile)); err != nil {
		return fmt.Errorf("paths.overrides_file: %w", err)
	}
	if c.Paths.MetricsFile, err = expandPath(strings.TrimSpace(c.Paths.MetricsFile)); err != nil {
		return fmt.Errorf("paths.metrics_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	if strings.TrimSpace(c.TMDB.Language) == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if strings.TrimSpace(c.TMDB.Region) == "" {
		c.TMDB.Region = defaultTMDBRegion
	}
	if c.TMDB.DetailConcurrency == 0 {
		c.TMDB.DetailConcurrency = defaultDetailConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) normalizeCatalog() error {
	// MOVIES_PER_GENRE applies only while the file keeps the built-in capacity.
	if value, ok := os.LookupEnv("MOVIES_PER_GENRE"); ok && strings.TrimSpace(value) != "" && c.Catalog.DefaultCapacity == defaultCapacity {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("MOVIES_PER_GENRE: %w", err)
		}
		c.Catalog.DefaultCapacity = n
	}
	if c.Catalog.HistoryCapacity == 0 {
		c.Catalog.HistoryCapacity = defaultHistoryCapacity
	}
	if c.Catalog.HistoryRuns == 0 {
		c.Catalog.HistoryRuns = defaultHistoryRuns
	}
	return nil
}

func (c *Config) normalizeCategories() {
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Code = textutil.NormalizeCode(cat.Code)
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" {
			cat.Name = textutil.DisplayName(cat.Code)
		}
	}
}
