package catalog

import "time"

// MergeCounts summarizes how one category list was blended.
type MergeCounts struct {
	Total      int `json:"total"`
	Fresh      int `json:"fresh"`
	Cached     int `json:"cached"`
	Unresolved int `json:"unresolved,omitempty"`
	Duplicates int `json:"duplicates,omitempty"`
}

// RunMetadata is the summary persisted after every update.
type RunMetadata struct {
	RunID       string                 `json:"runId"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	Date        string                 `json:"date"`
	Strategy    string                 `json:"strategy"`
	WeekIndex   int                    `json:"weekIndex"`
	Pages       []int                  `json:"pages"`
	Counts      map[string]int         `json:"categoryCounts"`
	Total       int                    `json:"totalMovies"`
	APIRequests int64                  `json:"apiRequests"`
	Merge       map[string]MergeCounts `json:"hybridStats,omitempty"`
	Deficits    map[string]int         `json:"deficits,omitempty"`
	FreshOnly   bool                   `json:"freshOnly"`
	Duration    time.Duration          `json:"durationNs"`
}
