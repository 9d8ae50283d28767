package testsupport

import (
	"path/filepath"
	"testing"

	"marquee/internal/catalog"
	"marquee/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Paths = config.Paths{
		DataDir:       filepath.Join(base, "data"),
		LogDir:        filepath.Join(base, "logs"),
		Database:      filepath.Join(base, "data", "marquee.db"),
		LockFile:      filepath.Join(base, "data", "update.lock"),
		OverridesFile: filepath.Join(base, "classifications.json"),
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTMDB points the config at a test server.
func WithTMDB(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = baseURL
		b.cfg.TMDB.APIKey = key
	}
}

// WithMetricsFile enables the textfile metrics sink under the temp dir.
func WithMetricsFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.MetricsFile = filepath.Join(b.baseDir, "metrics", "marquee.prom")
	}
}

// WithCategories replaces the built-in categories. Each entry gets the
// given capacity.
func WithCategories(capacity int, codes ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Categories = nil
		for i, code := range codes {
			capValue := capacity
			b.cfg.Categories = append(b.cfg.Categories, config.Category{
				Code:        code,
				Name:        code,
				TMDBGenreID: 1000 + i,
				Capacity:    &capValue,
			})
		}
	}
}

// WithMerge overrides the merge tuning.
func WithMerge(floor, topBlock int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.FreshFloor = floor
		b.cfg.Merge.TopBlock = topBlock
	}
}

// WithThresholds overrides the fallback quality gate.
func WithThresholds(t catalog.Thresholds) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ranking.Default = t
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
