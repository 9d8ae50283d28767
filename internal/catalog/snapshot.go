package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// OutputItem is one entry of a published category list. ID is the stable
// cross-run key; TMDBID keeps the numeric source id when known.
type OutputItem struct {
	ID          string   `json:"id"`
	TMDBID      int64    `json:"tmdbId,omitempty"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	IMDBRating  string   `json:"imdbRating,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Cast        []string `json:"cast,omitempty"`
	Director    []string `json:"director,omitempty"`
	Tagline     string   `json:"tagline,omitempty"`

	Popularity  float64 `json:"popularity,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	VoteCount   int64   `json:"voteCount,omitempty"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	Score       float64 `json:"score,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// Candidate rebuilds the ranking view of a persisted item so that it can be
// scored again.
func (o OutputItem) Candidate(id int64) CandidateItem {
	return CandidateItem{
		ID:          id,
		Title:       o.Name,
		Overview:    o.Description,
		Popularity:  o.Popularity,
		Rating:      o.Rating,
		VoteCount:   o.VoteCount,
		ReleaseDate: o.ReleaseDate,
	}
}

// NewOutputItem builds the un-enriched output form of a scored candidate.
func NewOutputItem(item ScoredItem) OutputItem {
	c := item.Item
	out := OutputItem{
		ID:          TMDBKey(c.ID),
		TMDBID:      c.ID,
		Name:        c.Title,
		Description: c.Overview,
		Popularity:  c.Popularity,
		Rating:      c.Rating,
		VoteCount:   c.VoteCount,
		ReleaseDate: c.ReleaseDate,
		Score:       item.Score,
		Source:      string(item.Source),
	}
	if year, ok := c.ReleaseYear(); ok {
		out.ReleaseInfo = fmt.Sprintf("%d", year)
	}
	if c.Rating > 0 {
		out.IMDBRating = fmt.Sprintf("%.1f", c.Rating)
	}
	return out
}

// Source records how an item reached its list.
type Source string

const (
	SourceScored  Source = "scored"
	SourceManual  Source = "manual"
	SourceRelaxed Source = "relaxed"
	SourceMinimal Source = "minimal"
	SourceCached  Source = "cached"
)

// ExcludedScore marks an item rejected by the quality gate.
const ExcludedScore = -1.0

// ScoredItem is a candidate paired with the category it was scored for.
type ScoredItem struct {
	Item         CandidateItem
	CategoryCode string
	Score        float64
	Source       Source
}

// Excluded reports whether the score is the gate sentinel.
func (s ScoredItem) Excluded() bool {
	return s.Score < 0
}

// Snapshot is the per-category catalog produced by one run.
type Snapshot struct {
	Categories  map[string][]OutputItem `json:"categories"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Date        string                  `json:"date,omitempty"`
	Strategy    string                  `json:"strategy,omitempty"`
}

// ErrMalformedSnapshot reports a persisted snapshot with the wrong shape.
var ErrMalformedSnapshot = errors.New("malformed catalog snapshot")

// Validate checks the structural shape of a decoded snapshot. Items
// without a resolvable identity are left for the merger to drop one by one.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	}
	if s.Categories == nil {
		return fmt.Errorf("%w: missing categories", ErrMalformedSnapshot)
	}
	return nil
}

// Codes returns the category codes in sorted order.
func (s *Snapshot) Codes() []string {
	if s == nil {
		return nil
	}
	codes := make([]string, 0, len(s.Categories))
	for code := range s.Categories {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Counts returns list lengths keyed by category.
func (s *Snapshot) Counts() map[string]int {
	counts := make(map[string]int, len(s.Categories))
	for code, items := range s.Categories {
		counts[code] = len(items)
	}
	return counts
}

// Total returns the number of items across all categories.
func (s *Snapshot) Total() int {
	total := 0
	for _, items := range s.Categories {
		total += len(items)
	}
	return total
}

// Identities returns every resolvable canonical id in the snapshot.
func (s *Snapshot) Identities() []int64 {
	if s == nil {
		return nil
	}
	var ids []int64
	for _, code := range s.Codes() {
		for _, item := range s.Categories[code] {
			if id, ok := ResolveIdentity(item); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Clone returns a deep copy of the category lists.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Categories:  make(map[string][]OutputItem, len(s.Categories)),
		GeneratedAt: s.GeneratedAt,
		Date:        s.Date,
		Strategy:    s.Strategy,
	}
	for code, items := range s.Categories {
		out.Categories[code] = append([]OutputItem(nil), items...)
	}
	return out
}
