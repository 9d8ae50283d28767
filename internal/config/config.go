package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"marquee/internal/catalog"
	"marquee/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	Database      string `toml:"database"`
	LockFile      string `toml:"lock_file"`
	OverridesFile string `toml:"overrides_file"`
	MetricsFile   string `toml:"metrics_file"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	ImageBaseURL      string  `toml:"image_base_url"`
	Language          string  `toml:"language"`
	Region            string  `toml:"region"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxRetries        int     `toml:"max_retries"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	DetailConcurrency int     `toml:"detail_concurrency"`
	DetailCacheHours  int     `toml:"detail_cache_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Catalog contains list sizing and history retention.
type Catalog struct {
	DefaultCapacity int `toml:"default_capacity"`
	HistoryCapacity int `toml:"history_capacity"`
	HistoryRuns     int `toml:"history_runs"`
}

// Ranking tunes scoring and the backfill fallbacks.
type Ranking struct {
	RecentPenalty float64            `toml:"recent_penalty"`
	JitterMax     float64            `toml:"jitter_max"`
	Default       catalog.Thresholds `toml:"default"`
	Relaxed       catalog.Thresholds `toml:"relaxed"`
	Minimal       catalog.Thresholds `toml:"minimal"`
}

// Merge controls how fresh picks blend with the previous catalog.
type Merge struct {
	FreshFloor  int  `toml:"fresh_floor"`
	TopBlock    int  `toml:"top_block"`
	PreferNovel bool `toml:"prefer_novel"`
}

// Fetch controls how much upstream data a run pulls.
type Fetch struct {
	TargetNewPerCategory int `toml:"target_new_per_category"`
	MaxPages             int `toml:"max_pages"`
}

// Category declares one output list. Capacity falls back to
// catalog.default_capacity when omitted.
type Category struct {
	Code        string               `toml:"code"`
	Name        string               `toml:"name"`
	TMDBGenreID int                  `toml:"tmdb_genre_id"`
	Capacity    *int                 `toml:"capacity"`
	Thresholds  *catalog.Thresholds  `toml:"thresholds"`
	Personality *catalog.Personality `toml:"personality"`
	Relaxed     *catalog.Thresholds  `toml:"relaxed"`
	Minimal     *catalog.Thresholds  `toml:"minimal"`
}

// Config encapsulates all configuration values for Marquee.
//
// Configuration sections by subsystem:
//   - Paths: database, lock, log, classification and metrics locations
//   - TMDB: upstream API credentials and client pacing
//   - Logging: log format and level
//   - Catalog: list capacity and recent-history bounds
//   - Ranking: repeat penalty, jitter and quality thresholds
//   - Merge: freshness floor and competing block sizes
//   - Fetch: upstream page budget
//   - Categories: the ordered list of output categories
type Config struct {
	Paths      Paths      `toml:"paths"`
	TMDB       TMDB       `toml:"tmdb"`
	Logging    Logging    `toml:"logging"`
	Catalog    Catalog    `toml:"catalog"`
	Ranking    Ranking    `toml:"ranking"`
	Merge      Merge      `toml:"merge"`
	Fetch      Fetch      `toml:"fetch"`
	Categories []Category `toml:"categories"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that declares categories replaces the built-in table.
		cfg.Categories = nil
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Categories) == 0 {
			cfg.Categories = defaultCategories()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("marquee.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the update pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Paths.Database), filepath.Dir(c.Paths.LockFile)}
	if c.Paths.MetricsFile != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.MetricsFile))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CategorySpecs resolves the configured categories into engine specs, in
// configured order.
func (c *Config) CategorySpecs() []catalog.CategorySpec {
	specs := make([]catalog.CategorySpec, 0, len(c.Categories))
	for _, cat := range c.Categories {
		capacity := c.Catalog.DefaultCapacity
		if cat.Capacity != nil {
			capacity = *cat.Capacity
		}
		specs = append(specs, catalog.CategorySpec{
			Code:        cat.Code,
			Name:        cat.Name,
			TMDBGenreID: cat.TMDBGenreID,
			Capacity:    capacity,
			Thresholds:  cat.Thresholds,
			Personality: cat.Personality,
			Relaxed:     cat.Relaxed,
			Minimal:     cat.Minimal,
		})
	}
	return specs
}

// Category returns the configured category with code.
func (c *Config) Category(code string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Code == code {
			return cat, true
		}
	}
	return Category{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.TMDB.APIKey != "" {
		redacted.TMDB.APIKey = "********"
	}
	data, err := toml.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
