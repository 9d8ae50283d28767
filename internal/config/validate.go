package config

import (
	"errors"
	"fmt"

	"marquee/internal/catalog"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateRanking(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	return c.validateCategories()
}

// RequireTMDB reports whether the TMDB credentials needed for an update are present.
func (c *Config) RequireTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'marquee config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.RequestsPerSecond <= 0 {
		return errors.New("tmdb.requests_per_second must be positive")
	}
	if c.TMDB.Burst < 1 {
		return errors.New("tmdb.burst must be at least 1")
	}
	if c.TMDB.MaxRetries < 0 {
		return errors.New("tmdb.max_retries must be zero or greater")
	}
	if c.TMDB.TimeoutSeconds <= 0 {
		return errors.New("tmdb.timeout_seconds must be positive")
	}
	if c.TMDB.DetailConcurrency < 1 {
		return errors.New("tmdb.detail_concurrency must be at least 1")
	}
	if c.TMDB.DetailCacheHours < 0 {
		return errors.New("tmdb.detail_cache_hours must be zero or greater")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.DefaultCapacity < 0 {
		return errors.New("catalog.default_capacity must be zero or greater")
	}
	if c.Catalog.HistoryCapacity < 0 {
		return errors.New("catalog.history_capacity must be zero or greater")
	}
	if c.Catalog.HistoryRuns < 0 {
		return errors.New("catalog.history_runs must be zero or greater")
	}
	return nil
}

func (c *Config) validateRanking() error {
	if c.Ranking.RecentPenalty <= 0 || c.Ranking.RecentPenalty > 1 {
		return errors.New("ranking.recent_penalty must be in (0, 1]")
	}
	if c.Ranking.JitterMax < 0 || c.Ranking.JitterMax >= 1 {
		return errors.New("ranking.jitter_max must be in [0, 1)")
	}
	if err := validateThresholds("ranking.default", &c.Ranking.Default); err != nil {
		return err
	}
	if err := validateThresholds("ranking.relaxed", &c.Ranking.Relaxed); err != nil {
		return err
	}
	return validateThresholds("ranking.minimal", &c.Ranking.Minimal)
}

func (c *Config) validateMerge() error {
	if c.Merge.FreshFloor < 0 {
		return errors.New("merge.fresh_floor must be zero or greater")
	}
	if c.Merge.TopBlock < c.Merge.FreshFloor {
		return errors.New("merge.top_block must be at least merge.fresh_floor")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TargetNewPerCategory < 0 {
		return errors.New("fetch.target_new_per_category must be zero or greater")
	}
	if c.Fetch.MaxPages < 1 {
		return errors.New("fetch.max_pages must be at least 1")
	}
	return nil
}

func (c *Config) validateCategories() error {
	if len(c.Categories) == 0 {
		return errors.New("categories must declare at least one category")
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Code == "" {
			return fmt.Errorf("categories[%d].code must be set", i)
		}
		if _, dup := seen[cat.Code]; dup {
			return fmt.Errorf("categories[%d].code %q is declared twice", i, cat.Code)
		}
		seen[cat.Code] = struct{}{}
		if cat.Capacity != nil && *cat.Capacity < 0 {
			return fmt.Errorf("categories.%s.capacity must be zero or greater", cat.Code)
		}
		if cat.TMDBGenreID < 0 {
			return fmt.Errorf("categories.%s.tmdb_genre_id must be zero or greater", cat.Code)
		}
		prefix := "categories." + cat.Code
		if err := validateThresholds(prefix+".thresholds", cat.Thresholds); err != nil {
			return err
		}
		if err := validateThresholds(prefix+".relaxed", cat.Relaxed); err != nil {
			return err
		}
		if err := validateThresholds(prefix+".minimal", cat.Minimal); err != nil {
			return err
		}
		if p := cat.Personality; p != nil {
			if err := validateMonths(prefix+".personality.seasonal_months", p.SeasonalMonths); err != nil {
				return err
			}
			if err := validateMonths(prefix+".personality.award_season_months", p.AwardSeasonMonths); err != nil {
				return err
			}
			if p.OlderFilmPenalty < 0 || p.OlderFilmPenalty >= 1 {
				return fmt.Errorf("categories.%s.personality.older_film_penalty must be in [0, 1)", cat.Code)
			}
		}
	}
	return nil
}

func validateThresholds(name string, t *catalog.Thresholds) error {
	if t == nil {
		return nil
	}
	if t.MinVotes < 0 || t.MinPopularity < 0 {
		return fmt.Errorf("%s thresholds must be zero or greater", name)
	}
	if t.MinRating < 0 || t.MinRating > 10 {
		return fmt.Errorf("%s.min_rating must be between 0 and 10", name)
	}
	return nil
}

func validateMonths(name string, months []int) error {
	for _, m := range months {
		if m < 1 || m > 12 {
			return fmt.Errorf("%s: month %d out of range", name, m)
		}
	}
	return nil
}
