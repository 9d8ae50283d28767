package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"marquee/internal/catalog"
	"marquee/internal/logging"
	"marquee/internal/rotation"
	"marquee/internal/tmdb"
)

// ErrNoCandidates is returned when every upstream request failed.
var ErrNoCandidates = errors.New("no candidates fetched")

// FetchOptions bounds how much a run pulls from upstream.
type FetchOptions struct {
	TargetNewPerCategory int
	MaxPages             int
	Concurrency          int
}

// FetchReport summarizes one fetch.
type FetchReport struct {
	Requests int            `json:"requests"`
	Failures int            `json:"failures"`
	TopUps   int            `json:"topUps"`
	Fetched  map[string]int `json:"fetched"`
	New      map[string]int `json:"new"`
}

// Fetcher collects candidates per category.
type Fetcher struct {
	api    tmdb.API
	specs  []catalog.CategorySpec
	opts   FetchOptions
	logger *slog.Logger
}

// NewFetcher builds a fetcher over the given categories.
func NewFetcher(api tmdb.API, specs []catalog.CategorySpec, opts FetchOptions, logger *slog.Logger) *Fetcher {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Fetcher{
		api:    api,
		specs:  specs,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "source"),
	}
}

type categoryFetch struct {
	items    []catalog.CandidateItem
	seen     map[int64]struct{}
	fresh    int
	lastPage int
	total    int
	requests int
	failures int
}

func (c *categoryFetch) add(movies []tmdb.Movie, recent map[int64]struct{}) {
	for _, movie := range movies {
		if movie.ID <= 0 {
			continue
		}
		if _, dup := c.seen[movie.ID]; dup {
			continue
		}
		c.seen[movie.ID] = struct{}{}
		c.items = append(c.items, Candidate(movie))
		if _, shown := recent[movie.ID]; !shown {
			c.fresh++
		}
	}
}

// Fetch follows the day's plan for every genre-backed category. Failed
// pages are logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context, day rotation.DayContext, recent map[int64]struct{}) (map[string][]catalog.CandidateItem, FetchReport, error) {
	plan := day.Plan()
	var specs []catalog.CategorySpec
	for _, spec := range f.specs {
		if !spec.Custom() && spec.Capacity > 0 {
			specs = append(specs, spec)
		}
	}
	results := make([]*categoryFetch, len(specs))
	for i := range results {
		results[i] = &categoryFetch{seen: make(map[int64]struct{})}
	}

	if err := f.forEach(ctx, specs, func(ctx context.Context, i int) {
		for _, page := range plan.Pages {
			f.fetchPage(ctx, specs[i], plan, page, results[i], recent)
		}
	}); err != nil {
		return nil, FetchReport{}, err
	}

	report := FetchReport{Fetched: make(map[string]int, len(specs)), New: make(map[string]int, len(specs))}
	if target := f.opts.TargetNewPerCategory; target > 0 && len(specs) > 0 && averageFresh(results) < float64(target) {
		var short []int
		for i, r := range results {
			if r.fresh < target {
				short = append(short, i)
			}
		}
		f.logger.Info("topping up categories with too few unseen items",
			logging.Int("categories", len(short)),
			logging.Int("target", target),
		)
		if err := f.forEach(ctx, specs, func(ctx context.Context, i int) {
			if results[i].fresh >= target {
				return
			}
			r := results[i]
			for page := r.lastPage + 1; page <= f.opts.MaxPages && r.fresh < target; page++ {
				if r.total > 0 && page > r.total {
					break
				}
				f.fetchPage(ctx, specs[i], plan, page, r, recent)
			}
		}); err != nil {
			return nil, FetchReport{}, err
		}
		report.TopUps = len(short)
	}

	pools := make(map[string][]catalog.CandidateItem, len(specs))
	for i, spec := range specs {
		r := results[i]
		pools[spec.Code] = r.items
		report.Fetched[spec.Code] = len(r.items)
		report.New[spec.Code] = r.fresh
		report.Requests += r.requests
		report.Failures += r.failures
	}
	if report.Requests > 0 && report.Failures == report.Requests {
		return nil, report, fmt.Errorf("%w: all %d requests failed", ErrNoCandidates, report.Requests)
	}
	return pools, report, nil
}

func (f *Fetcher) forEach(ctx context.Context, specs []catalog.CategorySpec, fn func(context.Context, int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)
	for i := range specs {
		g.Go(func() error {
			fn(gctx, i)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (f *Fetcher) fetchPage(ctx context.Context, spec catalog.CategorySpec, plan rotation.Plan, page int, r *categoryFetch, recent map[int64]struct{}) {
	if ctx.Err() != nil {
		return
	}
	r.requests++
	if page > r.lastPage {
		r.lastPage = page
	}
	resp, err := f.api.Discover(ctx, tmdb.DiscoverQuery{
		GenreID:        spec.TMDBGenreID,
		SortBy:         plan.SortBy,
		Page:           page,
		MinVotes:       plan.MinVotes,
		MinRating:      plan.MinRating,
		ReleaseDateGTE: plan.ReleaseDateGTE,
		ReleaseDateLTE: plan.ReleaseDateLTE,
	})
	if err != nil {
		r.failures++
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(f.logger, "discover page failed", "fetch_failed",
			logging.String(logging.FieldCategory, spec.Code),
			logging.Int("page", page),
			logging.Error(err),
			logging.String(logging.FieldImpact, "category built from fewer candidates"),
			logging.String(logging.FieldErrorHint, "check TMDB connectivity and API key"),
		)
		return
	}
	r.total = resp.TotalPages
	r.add(resp.Results, recent)
}

func averageFresh(results []*categoryFetch) float64 {
	if len(results) == 0 {
		return 0
	}
	total := 0
	for _, r := range results {
		total += r.fresh
	}
	return float64(total) / float64(len(results))
}

// ResolveManual fetches details for manually assigned ids that no pool
// contains and adds them to the pool of their assigned category. Lookups
// that fail are logged and left to the assigner.
func (f *Fetcher) ResolveManual(ctx context.Context, manual map[int64]string, pools map[string][]catalog.CandidateItem) int {
	known := make(map[string]struct{}, len(f.specs))
	for _, spec := range f.specs {
		known[spec.Code] = struct{}{}
	}
	present := make(map[int64]struct{})
	for _, pool := range pools {
		for _, item := range pool {
			present[item.ID] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(manual))
	for id, code := range manual {
		if _, ok := known[code]; !ok {
			continue
		}
		if _, ok := present[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	resolved := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		details, err := f.api.MovieDetails(ctx, id)
		if err != nil {
			logging.WarnWithContext(f.logger, "manual assignment lookup failed", "manual_lookup_failed",
				logging.MovieID(id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item placed without ranking metrics"),
			)
			continue
		}
		code := manual[id]
		pools[code] = append(pools[code], CandidateFromDetails(details))
		resolved++
	}
	return resolved
}

// Candidate maps a discover result onto the ranking model.
func Candidate(m tmdb.Movie) catalog.CandidateItem {
	return catalog.CandidateItem{
		ID:           m.ID,
		Title:        m.Title,
		Overview:     m.Overview,
		Popularity:   m.Popularity,
		Rating:       m.VoteAverage,
		VoteCount:    m.VoteCount,
		ReleaseDate:  m.ReleaseDate,
		PosterPath:   m.PosterPath,
		BackdropPath: m.BackdropPath,
		GenreIDs:     m.GenreIDs,
	}
}

// CandidateFromDetails maps a details payload onto the ranking model.
func CandidateFromDetails(d *tmdb.Details) catalog.CandidateItem {
	genres := make([]int, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.ID)
	}
	return catalog.CandidateItem{
		ID:           d.ID,
		Title:        d.Title,
		Overview:     d.Overview,
		Popularity:   d.Popularity,
		Rating:       d.VoteAverage,
		VoteCount:    d.VoteCount,
		ReleaseDate:  d.ReleaseDate,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		GenreIDs:     genres,
	}
}
