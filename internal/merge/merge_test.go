package merge_test

import (
	"testing"
	"time"

	"marquee/internal/catalog"
	"marquee/internal/logging"
	"marquee/internal/merge"
	"marquee/internal/ranking"
	"marquee/internal/rotation"
)

var day = rotation.ForDate(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))

func newMerger(opts merge.Options) *merge.Merger {
	return merge.New(ranking.NewCalculator(nil, ranking.DefaultOptions()), opts, logging.NewNop())
}

func freshItems(n int, firstID int64) []catalog.ScoredItem {
	out := make([]catalog.ScoredItem, n)
	for i := range out {
		out[i] = catalog.ScoredItem{
			Item:         catalog.CandidateItem{ID: firstID + int64(i), Title: "fresh"},
			CategoryCode: "ACTION",
			Score:        float64(50 - i),
			Source:       catalog.SourceScored,
		}
	}
	return out
}

// strong cached items outscore every fresh item above.
func strongCached(id int64) catalog.OutputItem {
	return catalog.OutputItem{ID: catalog.TMDBKey(id), TMDBID: id, Name: "cached", Popularity: 900, Rating: 9.5, VoteCount: 50000}
}

func weakCached(id int64) catalog.OutputItem {
	return catalog.OutputItem{ID: catalog.TMDBKey(id), TMDBID: id, Name: "weak"}
}

func TestMergeWithoutPreviousReturnsFresh(t *testing.T) {
	m := newMerger(merge.DefaultOptions())
	fresh := freshItems(5, 1)
	fresh[3].Score = 99 // backfilled order is preserved as-is
	out, stats := m.Merge(merge.Input{Spec: catalog.CategorySpec{Code: "ACTION", Capacity: 4}, Fresh: fresh}, day, nil)
	if len(out) != 4 {
		t.Fatalf("len = %d, want capacity 4", len(out))
	}
	for i, item := range out {
		if item.TMDBID != fresh[i].Item.ID {
			t.Fatalf("slot %d = %d, want %d", i, item.TMDBID, fresh[i].Item.ID)
		}
	}
	if stats.Fresh != 4 || stats.Cached != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestFreshFloorHoldsAgainstStrongCache(t *testing.T) {
	m := newMerger(merge.Options{FreshFloor: 3, TopBlock: 5})
	cached := []catalog.OutputItem{strongCached(100), strongCached(101), strongCached(102)}
	in := merge.Input{
		Spec:        catalog.CategorySpec{Code: "ACTION", Capacity: 10},
		Fresh:       freshItems(6, 1),
		Cached:      cached,
		HasPrevious: true,
	}
	out, stats := m.Merge(in, day, nil)
	if len(out) != 9 {
		t.Fatalf("len = %d, want 9", len(out))
	}
	for i := 0; i < 3; i++ {
		if out[i].Source == string(catalog.SourceCached) {
			t.Fatalf("slot %d is cached; floor must be fresh", i)
		}
	}
	if out[0].TMDBID != 1 || out[2].TMDBID != 3 {
		t.Fatalf("floor should hold the top fresh items, got %d..%d", out[0].TMDBID, out[2].TMDBID)
	}
	for i := 3; i < 6; i++ {
		if out[i].Source != string(catalog.SourceCached) {
			t.Fatalf("slot %d = %+v; strong cached items should win the competing block", i, out[i])
		}
	}
	if stats.Fresh != 6 || stats.Cached != 3 || stats.Total != 9 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWeakCacheTrailsFresh(t *testing.T) {
	m := newMerger(merge.Options{FreshFloor: 1, TopBlock: 3})
	in := merge.Input{
		Spec:        catalog.CategorySpec{Code: "ACTION", Capacity: 4},
		Fresh:       freshItems(2, 1),
		Cached:      []catalog.OutputItem{weakCached(50), weakCached(51)},
		HasPrevious: true,
	}
	out, _ := m.Merge(in, day, nil)
	want := []int64{1, 2, 50, 51}
	for i, id := range want {
		if out[i].TMDBID != id {
			t.Fatalf("slot %d = %d, want %d", i, out[i].TMDBID, id)
		}
	}
}

func TestCachedDuplicatesOfFreshAreDropped(t *testing.T) {
	m := newMerger(merge.DefaultOptions())
	in := merge.Input{
		Spec:  catalog.CategorySpec{Code: "ACTION", Capacity: 10},
		Fresh: freshItems(2, 1),
		Cached: []catalog.OutputItem{
			{ID: "tt0000001", TMDBID: 1, Name: "same as fresh 1 under imdb id"},
			{ID: "tmdb:2", Name: "same as fresh 2 under prefixed key"},
			{ID: "tt7654321", Name: "no resolvable identity"},
			{ID: "tmdb:9", Name: "kept"},
			{ID: "tmdb:9", Name: "repeat"},
		},
		HasPrevious: true,
	}
	out, stats := m.Merge(in, day, nil)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(out), out)
	}
	seen := map[int64]bool{}
	for _, item := range out {
		if seen[item.TMDBID] {
			t.Fatalf("duplicate identity %d", item.TMDBID)
		}
		seen[item.TMDBID] = true
	}
	if !seen[9] {
		t.Fatal("resolvable cached item should be kept")
	}
	if stats.Unresolved != 1 || stats.Duplicates != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestExcludedIdentitiesAreDropped(t *testing.T) {
	m := newMerger(merge.DefaultOptions())
	in := merge.Input{
		Spec:        catalog.CategorySpec{Code: "ACTION", Capacity: 10},
		Cached:      []catalog.OutputItem{strongCached(7), strongCached(8)},
		HasPrevious: true,
		Exclude:     map[int64]struct{}{7: {}},
	}
	out, _ := m.Merge(in, day, nil)
	if len(out) != 1 || out[0].TMDBID != 8 {
		t.Fatalf("expected only id 8, got %+v", out)
	}
}

func TestBackfillSourcesStayBelowMainBlock(t *testing.T) {
	m := newMerger(merge.Options{FreshFloor: 2, TopBlock: 2})
	fresh := freshItems(4, 1)
	fresh[0].Source, fresh[0].Score = catalog.SourceMinimal, 400
	fresh[1].Source, fresh[1].Score = catalog.SourceRelaxed, 300
	in := merge.Input{
		Spec:        catalog.CategorySpec{Code: "ACTION", Capacity: 5},
		Fresh:       fresh,
		Cached:      []catalog.OutputItem{weakCached(50)},
		HasPrevious: true,
	}
	out, stats := m.Merge(in, day, nil)
	want := []int64{3, 4, 50, 2, 1}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i, id := range want {
		if out[i].TMDBID != id {
			t.Fatalf("slot %d = %d (%s), want %d", i, out[i].TMDBID, out[i].Source, id)
		}
	}
	if stats.Fresh != 4 || stats.Cached != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCapacityTruncatesMerge(t *testing.T) {
	m := newMerger(merge.Options{FreshFloor: 2, TopBlock: 3})
	in := merge.Input{
		Spec:        catalog.CategorySpec{Code: "ACTION", Capacity: 3},
		Fresh:       freshItems(5, 1),
		Cached:      []catalog.OutputItem{strongCached(60), strongCached(61)},
		HasPrevious: true,
	}
	out, _ := m.Merge(in, day, nil)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if zero, _ := m.Merge(merge.Input{Spec: catalog.CategorySpec{Code: "ACTION"}, Fresh: freshItems(2, 1)}, day, nil); len(zero) != 0 {
		t.Fatalf("zero capacity should be empty, got %d", len(zero))
	}
}

func TestPreferNovelFloor(t *testing.T) {
	m := newMerger(merge.Options{FreshFloor: 2, TopBlock: 2, PreferNovel: true})
	in := merge.Input{
		Spec:        catalog.CategorySpec{Code: "ACTION", Capacity: 4},
		Fresh:       freshItems(4, 1),
		Cached:      []catalog.OutputItem{weakCached(1), weakCached(2)},
		HasPrevious: true,
	}
	out, _ := m.Merge(in, day, nil)
	if out[0].TMDBID != 3 || out[1].TMDBID != 4 {
		t.Fatalf("floor should prefer items absent yesterday, got %d, %d", out[0].TMDBID, out[1].TMDBID)
	}
	if out[2].TMDBID != 1 || out[3].TMDBID != 2 {
		t.Fatalf("returning fresh items follow, got %d, %d", out[2].TMDBID, out[3].TMDBID)
	}
}

func TestCachedRescoringAppliesRecency(t *testing.T) {
	m := newMerger(merge.Options{FreshFloor: 0, TopBlock: 0})
	in := merge.Input{
		Spec:        catalog.CategorySpec{Code: "ACTION", Capacity: 2},
		Cached:      []catalog.OutputItem{strongCached(1), strongCached(2)},
		HasPrevious: true,
	}
	plain, _ := m.Merge(in, day, nil)
	penalized, _ := m.Merge(in, day, map[int64]struct{}{plain[0].TMDBID: {}})
	var before, after float64
	for _, item := range plain {
		if item.TMDBID == plain[0].TMDBID {
			before = item.Score
		}
	}
	for _, item := range penalized {
		if item.TMDBID == plain[0].TMDBID {
			after = item.Score
		}
	}
	if after >= before {
		t.Fatalf("recent cached item should be penalized: before %v after %v", before, after)
	}
}
