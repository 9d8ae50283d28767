package config

import "marquee/internal/catalog"

const (
	defaultConfigPath        = "~/.config/marquee/config.toml"
	defaultDataDir           = "~/.local/share/marquee"
	defaultLogDir            = "~/.local/share/marquee/logs"
	defaultOverridesFile     = "~/.config/marquee/classifications.json"
	defaultTMDBBaseURL       = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL  = "https://image.tmdb.org/t/p"
	defaultTMDBLanguage      = "en-US"
	defaultTMDBRegion        = "US"
	defaultCapacity          = 100
	defaultHistoryCapacity   = 4000
	defaultHistoryRuns       = 7
	defaultFreshFloor        = 20
	defaultTopBlock          = 30
	defaultRecentPenalty     = 0.70
	defaultJitterMax         = 0.15
	defaultRequestsPerSecond = 4
	defaultDetailConcurrency = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			LogDir:        defaultLogDir,
			OverridesFile: defaultOverridesFile,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			ImageBaseURL:      defaultTMDBImageBaseURL,
			Language:          defaultTMDBLanguage,
			Region:            defaultTMDBRegion,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             4,
			MaxRetries:        3,
			TimeoutSeconds:    15,
			DetailConcurrency: defaultDetailConcurrency,
			DetailCacheHours:  24,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Catalog: Catalog{
			DefaultCapacity: defaultCapacity,
			HistoryCapacity: defaultHistoryCapacity,
			HistoryRuns:     defaultHistoryRuns,
		},
		Ranking: Ranking{
			RecentPenalty: defaultRecentPenalty,
			JitterMax:     defaultJitterMax,
			Default:       catalog.Thresholds{MinVotes: 100, MinRating: 5.5, MinPopularity: 2},
			Relaxed:       catalog.Thresholds{MinVotes: 50, MinRating: 5.0},
			Minimal:       catalog.Thresholds{MinVotes: 10, MinRating: 4.0},
		},
		Merge: Merge{
			FreshFloor: defaultFreshFloor,
			TopBlock:   defaultTopBlock,
		},
		Fetch: Fetch{
			TargetNewPerCategory: 20,
			MaxPages:             10,
		},
		Categories: defaultCategories(),
	}
}
