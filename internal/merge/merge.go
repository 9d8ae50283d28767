// Package merge blends a category's fresh picks with its previous list so
// the published catalog evolves incrementally while always surfacing new
// content at the top.
package merge

import (
	"log/slog"
	"sort"

	"marquee/internal/catalog"
	"marquee/internal/logging"
	"marquee/internal/ranking"
	"marquee/internal/rotation"
)

// Options sizes the merged blocks.
type Options struct {
	// FreshFloor is the number of leading slots reserved for fresh items.
	FreshFloor int
	// TopBlock is the size of the leading block in which cached items may
	// compete with fresh ones; it includes the floor.
	TopBlock int
	// PreferNovel fills the floor with fresh items absent from the previous
	// list before falling back to the rest.
	PreferNovel bool
}

// DefaultOptions returns the production block sizes.
func DefaultOptions() Options {
	return Options{FreshFloor: 20, TopBlock: 30}
}

// Input is one category's merge work.
type Input struct {
	Spec        catalog.CategorySpec
	Fresh       []catalog.ScoredItem
	Cached      []catalog.OutputItem
	HasPrevious bool
	// Exclude holds identities claimed by any category in this run; cached
	// items with these identities are dropped.
	Exclude map[int64]struct{}
}

// Stats summarizes one category merge.
type Stats struct {
	Total      int `json:"total"`
	Fresh      int `json:"fresh"`
	Cached     int `json:"cached"`
	Unresolved int `json:"unresolved"`
	Duplicates int `json:"duplicates"`
}

// FreshPercent returns the share of fresh items in the merged list.
func (s Stats) FreshPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Fresh) / float64(s.Total) * 100
}

// Merger is safe for concurrent use across categories.
type Merger struct {
	calc   *ranking.Calculator
	opts   Options
	logger *slog.Logger
}

// New builds a merger that re-scores cached items with calc.
func New(calc *ranking.Calculator, opts Options, logger *slog.Logger) *Merger {
	return &Merger{calc: calc, opts: opts, logger: logging.NewComponentLogger(logger, "merge")}
}

type entry struct {
	item  catalog.OutputItem
	score float64
	tier  int
	fresh bool
}

// tierOf places the relaxed and minimal backfill blocks below the main
// block. Their scores are only comparable within one block.
func tierOf(source catalog.Source) int {
	switch source {
	case catalog.SourceRelaxed:
		return 1
	case catalog.SourceMinimal:
		return 2
	default:
		return 0
	}
}

// Merge produces the final ordered list for one category.
func (m *Merger) Merge(in Input, day rotation.DayContext, recent map[int64]struct{}) ([]catalog.OutputItem, Stats) {
	capacity := in.Spec.Capacity
	if capacity <= 0 {
		return []catalog.OutputItem{}, Stats{}
	}

	fresh := make([]entry, 0, len(in.Fresh))
	freshIDs := make(map[int64]struct{}, len(in.Fresh))
	for _, item := range in.Fresh {
		if _, dup := freshIDs[item.Item.ID]; dup {
			continue
		}
		freshIDs[item.Item.ID] = struct{}{}
		fresh = append(fresh, entry{item: catalog.NewOutputItem(item), score: item.Score, tier: tierOf(item.Source), fresh: true})
	}
	if !in.HasPrevious {
		return finish(fresh, capacity)
	}
	sortEntries(fresh)

	var stats Stats
	previous := make(map[int64]struct{}, len(in.Cached))
	cached := make([]entry, 0, len(in.Cached))
	for _, item := range in.Cached {
		id, ok := catalog.ResolveIdentity(item)
		if !ok {
			stats.Unresolved++
			continue
		}
		if _, dup := previous[id]; dup {
			stats.Duplicates++
			continue
		}
		previous[id] = struct{}{}
		if _, dup := freshIDs[id]; dup {
			stats.Duplicates++
			continue
		}
		if _, taken := in.Exclude[id]; taken {
			stats.Duplicates++
			continue
		}
		score := m.calc.Ungated(item.Candidate(id), in.Spec.Code, day, recent)
		item.TMDBID = id
		item.Score = score
		item.Source = string(catalog.SourceCached)
		cached = append(cached, entry{item: item, score: score})
	}
	if stats.Unresolved > 0 {
		logging.WarnWithContext(m.logger, "dropped cached items without a resolvable identity", "identity_unresolved",
			logging.String(logging.FieldCategory, in.Spec.Code),
			logging.Int("dropped", stats.Unresolved),
			logging.String(logging.FieldImpact, "previously shown items left out of today's list"),
			logging.String(logging.FieldErrorHint, "cached entries need a tmdbId or a tmdb:<id> key"),
		)
	}

	floor, rest := m.splitFloor(fresh, previous)
	pool := append(rest, cached...)
	sortEntries(pool)

	competing := m.opts.TopBlock - m.opts.FreshFloor
	if competing < 0 {
		competing = 0
	}
	if competing > len(pool) {
		competing = len(pool)
	}
	top, remainder := pool[:competing], pool[competing:]

	merged := make([]entry, 0, len(floor)+len(pool))
	merged = append(merged, floor...)
	merged = append(merged, top...)
	merged = append(merged, remainder...)

	out, final := finish(merged, capacity)
	final.Unresolved = stats.Unresolved
	final.Duplicates = stats.Duplicates
	return out, final
}

// splitFloor takes the guaranteed-fresh floor off the sorted fresh list.
func (m *Merger) splitFloor(fresh []entry, previous map[int64]struct{}) ([]entry, []entry) {
	size := m.opts.FreshFloor
	if size > len(fresh) {
		size = len(fresh)
	}
	if !m.opts.PreferNovel {
		return append([]entry(nil), fresh[:size]...), append([]entry(nil), fresh[size:]...)
	}

	taken := make([]bool, len(fresh))
	floor := make([]entry, 0, size)
	for i, e := range fresh {
		if len(floor) == size {
			break
		}
		if _, seen := previous[e.item.TMDBID]; !seen {
			floor = append(floor, e)
			taken[i] = true
		}
	}
	for i, e := range fresh {
		if len(floor) == size {
			break
		}
		if !taken[i] {
			floor = append(floor, e)
			taken[i] = true
		}
	}
	sortEntries(floor)
	rest := make([]entry, 0, len(fresh)-len(floor))
	for i, e := range fresh {
		if !taken[i] {
			rest = append(rest, e)
		}
	}
	return floor, rest
}

func finish(entries []entry, capacity int) ([]catalog.OutputItem, Stats) {
	if len(entries) > capacity {
		entries = entries[:capacity]
	}
	out := make([]catalog.OutputItem, len(entries))
	var stats Stats
	for i, e := range entries {
		out[i] = e.item
		if e.fresh {
			stats.Fresh++
		} else {
			stats.Cached++
		}
	}
	stats.Total = len(out)
	return out, stats
}

func sortEntries(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].tier != entries[j].tier {
			return entries[i].tier < entries[j].tier
		}
		return entries[i].score > entries[j].score
	})
}
