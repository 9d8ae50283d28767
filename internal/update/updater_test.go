package update_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/overrides"
	"marquee/internal/rotation"
	"marquee/internal/source"
	"marquee/internal/store"
	"marquee/internal/testsupport"
	"marquee/internal/tmdb"
	"marquee/internal/update"
)

type fakeAPI struct {
	mu       sync.Mutex
	failAll  bool
	requests int64
}

func (f *fakeAPI) Discover(_ context.Context, q tmdb.DiscoverQuery) (*tmdb.DiscoverResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.failAll {
		return nil, errors.New("upstream down")
	}
	resp := &tmdb.DiscoverResponse{Page: q.Page, TotalPages: 3}
	for k := 0; k < 8; k++ {
		id := int64(q.GenreID*1000 + q.Page*10 + k)
		resp.Results = append(resp.Results, tmdb.Movie{
			ID:          id,
			Title:       fmt.Sprintf("movie %d", id),
			VoteCount:   800,
			VoteAverage: 7.1,
			Popularity:  25,
			ReleaseDate: "2019-06-01",
		})
	}
	return resp, nil
}

func (f *fakeAPI) MovieDetails(_ context.Context, id int64) (*tmdb.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.failAll {
		return nil, errors.New("upstream down")
	}
	return &tmdb.Details{
		ID:          id,
		IMDBID:      fmt.Sprintf("tt%07d", id),
		Title:       fmt.Sprintf("movie %d", id),
		PosterPath:  "/p.jpg",
		ReleaseDate: "2019-06-01",
		VoteAverage: 7.1,
		VoteCount:   800,
		Popularity:  25,
	}, nil
}

func (f *fakeAPI) Requests() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeAPI) setFailAll(v bool) {
	f.mu.Lock()
	f.failAll = v
	f.mu.Unlock()
}

type harness struct {
	cfg     *config.Config
	store   *store.Store
	api     *fakeAPI
	updater *update.Updater
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithCategories(6, "ACTION", "DRAMA"), testsupport.WithMerge(2, 4)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Fetch.MaxPages = 3
	return buildHarness(t, cfg)
}

func buildHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	api := &fakeAPI{}
	u, err := update.New(update.Deps{
		Config:    cfg,
		Store:     st,
		API:       api,
		Overrides: overrides.NewTable(cfg.Paths.OverridesFile, logging.NewNop()),
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("update.New: %v", err)
	}
	return &harness{cfg: cfg, store: st, api: api, updater: u}
}

func dayOf(t *testing.T, date string) *rotation.DayContext {
	t.Helper()
	day, err := rotation.Parse(date)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return &day
}

func TestFirstRunPersistsCatalog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	summary, err := h.updater.Run(ctx, update.Options{Day: dayOf(t, "2026-05-14")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}
	if !summary.Engine.FreshOnly {
		t.Fatal("first run should be fresh-only")
	}

	snap, err := h.store.LoadSnapshot(ctx, store.KeyCatalog)
	if err != nil || snap == nil {
		t.Fatalf("LoadSnapshot: %v %v", snap, err)
	}
	for _, code := range []string{"ACTION", "DRAMA"} {
		items := snap.Categories[code]
		if len(items) != 6 {
			t.Fatalf("%s has %d items, want 6", code, len(items))
		}
		for _, item := range items {
			if !strings.HasPrefix(item.ID, "tt") || item.Poster == "" {
				t.Fatalf("item not enriched: %+v", item)
			}
		}
	}

	prev, err := h.store.LoadSnapshot(ctx, store.KeyCatalogPrevious)
	if err != nil || prev != nil {
		t.Fatalf("first run should not write a previous snapshot: %v %v", prev, err)
	}

	meta, err := h.store.LoadMetadata(ctx)
	if err != nil || meta == nil {
		t.Fatalf("LoadMetadata: %v %v", meta, err)
	}
	if meta.RunID != summary.RunID || meta.Date != "2026-05-14" || meta.Strategy != string(rotation.Blockbusters) {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Total != 12 || meta.APIRequests == 0 {
		t.Fatalf("unexpected totals %+v", meta)
	}

	history, err := h.store.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if history.Len() != 12 {
		t.Fatalf("history has %d ids, want 12", history.Len())
	}

	keys, err := h.store.Keys(ctx, store.DetailKeyPrefix())
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 12 {
		t.Fatalf("expected 12 cached detail records, got %d", len(keys))
	}
}

func TestSecondRunKeepsPrevious(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.updater.Run(ctx, update.Options{Day: dayOf(t, "2026-05-14")}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first, _ := h.store.LoadSnapshot(ctx, store.KeyCatalog)

	summary, err := h.updater.Run(ctx, update.Options{Day: dayOf(t, "2026-05-15")})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Engine.FreshOnly {
		t.Fatal("second run should merge with the previous catalog")
	}
	if summary.Metadata.Merge["ACTION"].Total != 6 {
		t.Fatalf("unexpected merge stats %+v", summary.Metadata.Merge["ACTION"])
	}

	prev, err := h.store.LoadSnapshot(ctx, store.KeyCatalogPrevious)
	if err != nil || prev == nil {
		t.Fatalf("LoadSnapshot previous: %v %v", prev, err)
	}
	if fmt.Sprint(prev.Identities()) != fmt.Sprint(first.Identities()) {
		t.Fatalf("previous snapshot does not match the first run")
	}

	current, _ := h.store.LoadSnapshot(ctx, store.KeyCatalog)
	seen := map[int64]string{}
	for code, items := range current.Categories {
		for _, item := range items {
			id, ok := catalog.ResolveIdentity(item)
			if !ok {
				t.Fatalf("unresolvable item %+v", item)
			}
			if other, dup := seen[id]; dup {
				t.Fatalf("id %d appears in %s and %s", id, other, code)
			}
			seen[id] = code
		}
	}
}

func TestDryRunPersistsNothing(t *testing.T) {
	h := newHarness(t, testsupport.WithMetricsFile())
	ctx := context.Background()

	summary, err := h.updater.Run(ctx, update.Options{Day: dayOf(t, "2026-05-14"), DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.DryRun || summary.Snapshot.Total() != 12 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, key := range []string{store.KeyCatalog, store.KeyMetadata, store.KeyRecent} {
		_, found, err := h.store.GetRaw(ctx, key)
		if err != nil {
			t.Fatalf("GetRaw %s: %v", key, err)
		}
		if found {
			t.Fatalf("dry run wrote %s", key)
		}
	}
	if _, err := os.Stat(h.cfg.Paths.MetricsFile); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote metrics: %v", err)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	h := newHarness(t)
	if err := h.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	other := flock.New(h.cfg.Paths.LockFile)
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}
	defer other.Unlock()

	_, err = h.updater.Run(context.Background(), update.Options{Day: dayOf(t, "2026-05-14")})
	if !errors.Is(err, update.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestFailedFetchLeavesCatalog(t *testing.T) {
	h := newHarness(t, testsupport.WithMetricsFile())
	ctx := context.Background()

	if _, err := h.updater.Run(ctx, update.Options{Day: dayOf(t, "2026-05-14")}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before, _ := h.store.LoadSnapshot(ctx, store.KeyCatalog)
	beforeMeta, _ := h.store.LoadMetadata(ctx)

	h.api.setFailAll(true)
	_, err := h.updater.Run(ctx, update.Options{Day: dayOf(t, "2026-05-15")})
	if !errors.Is(err, source.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}

	after, _ := h.store.LoadSnapshot(ctx, store.KeyCatalog)
	if fmt.Sprint(after.Identities()) != fmt.Sprint(before.Identities()) {
		t.Fatal("catalog changed after a failed run")
	}
	afterMeta, _ := h.store.LoadMetadata(ctx)
	if afterMeta.RunID != beforeMeta.RunID {
		t.Fatal("metadata changed after a failed run")
	}
	data, err := os.ReadFile(h.cfg.Paths.MetricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), "marquee_last_run_success 0") {
		t.Fatalf("metrics should record the failure:\n%s", data)
	}
}

func TestManualAssignmentFillsCustomCategory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCategories(6, "ACTION"), testsupport.WithMerge(2, 4))
	cfg.Fetch.MaxPages = 3
	capacity := 5
	cfg.Categories = append(cfg.Categories, config.Category{Code: "FAVORITES", Name: "Favorites", Capacity: &capacity})
	testsupport.WriteFile(t, cfg.Paths.OverridesFile, []byte(`[{"movieId": 42, "movieName": "Pinned", "genreCode": "favorites"}]`))
	h := buildHarness(t, cfg)

	summary, err := h.updater.Run(context.Background(), update.Options{Day: dayOf(t, "2026-05-14")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Manual != 1 {
		t.Fatalf("expected one resolved manual item, got %d", summary.Manual)
	}
	favorites := summary.Snapshot.Categories["FAVORITES"]
	if len(favorites) != 1 || favorites[0].TMDBID != 42 || favorites[0].ID != "tt0000042" {
		t.Fatalf("unexpected custom list %+v", favorites)
	}
	for _, item := range summary.Snapshot.Categories["ACTION"] {
		if item.TMDBID == 42 {
			t.Fatal("manual item leaked into ACTION")
		}
	}
}

func TestMetricsTextfileWritten(t *testing.T) {
	h := newHarness(t, testsupport.WithMetricsFile())
	if _, err := h.updater.Run(context.Background(), update.Options{Day: dayOf(t, "2026-05-14")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(h.cfg.Paths.MetricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"marquee_last_run_success 1",
		`marquee_category_items{category="ACTION",source="scored"} 6`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics missing %q:\n%s", want, text)
		}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := update.New(update.Deps{}); err == nil {
		t.Fatal("expected error for empty deps")
	}
}
