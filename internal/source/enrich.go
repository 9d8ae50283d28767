package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"marquee/internal/catalog"
	"marquee/internal/logging"
	"marquee/internal/tmdb"
)

// DetailCache persists detail records between runs.
type DetailCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	PutWithTTL(ctx context.Context, key string, v any, ttl time.Duration) error
}

// EnrichOptions tunes detail resolution.
type EnrichOptions struct {
	ImageBaseURL string
	Concurrency  int
	CacheTTL     time.Duration
	KeyFor       func(id int64) string
}

// EnrichReport summarizes one enrichment pass.
type EnrichReport struct {
	Requested  int `json:"requested"`
	CacheHits  int `json:"cacheHits"`
	Fetched    int `json:"fetched"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
}

// Enricher fills display metadata on snapshot items.
type Enricher struct {
	api    tmdb.API
	cache  DetailCache
	opts   EnrichOptions
	logger *slog.Logger
}

// NewEnricher builds an enricher. cache may be nil.
func NewEnricher(api tmdb.API, cache DetailCache, opts EnrichOptions, logger *slog.Logger) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.KeyFor == nil {
		opts.KeyFor = func(id int64) string { return fmt.Sprintf("movie:%d", id) }
	}
	opts.ImageBaseURL = strings.TrimRight(opts.ImageBaseURL, "/")
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	return &Enricher{api: api, cache: cache, opts: opts, logger: logging.NewComponentLogger(logger, "enrich")}
}

// Enrich resolves details for every item that does not carry them yet and
// drops later duplicates of the same output id. order lists category codes
// in configured order; it decides which duplicate survives.
func (e *Enricher) Enrich(ctx context.Context, snap *catalog.Snapshot, order []string) (EnrichReport, error) {
	var report EnrichReport
	var ids []int64
	queued := make(map[int64]struct{})
	for _, code := range order {
		for _, item := range snap.Categories[code] {
			if item.TMDBID <= 0 || enriched(item) {
				continue
			}
			if _, ok := queued[item.TMDBID]; ok {
				continue
			}
			queued[item.TMDBID] = struct{}{}
			ids = append(ids, item.TMDBID)
		}
	}
	report.Requested = len(ids)

	details := make(map[int64]*tmdb.Details, len(ids))
	var (
		mu       sync.Mutex
		hits     int
		failures int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			d, cached, err := e.lookup(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Debug("detail lookup failed", logging.MovieID(id), logging.Error(err))
				return nil
			}
			if cached {
				hits++
			}
			details[id] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("enrich details: %w", err)
	}
	report.CacheHits = hits
	report.Failed = failures
	report.Fetched = len(details) - hits

	if failures > 0 {
		logging.WarnWithContext(e.logger, "some items published without details", "enrich_partial",
			logging.Int("failed", failures),
			logging.Int("requested", report.Requested),
			logging.String(logging.FieldImpact, "items shown without poster or credits"),
			logging.String(logging.FieldErrorHint, "details are retried on the next update"),
		)
	}

	seen := make(map[string]struct{})
	for _, code := range order {
		items := snap.Categories[code]
		kept := items[:0]
		for _, item := range items {
			if d, ok := details[item.TMDBID]; ok {
				e.apply(&item, d)
			}
			if _, dup := seen[item.ID]; dup {
				report.Duplicates++
				continue
			}
			seen[item.ID] = struct{}{}
			kept = append(kept, item)
		}
		snap.Categories[code] = kept
	}
	return report, nil
}

func (e *Enricher) lookup(ctx context.Context, id int64) (*tmdb.Details, bool, error) {
	key := e.opts.KeyFor(id)
	if e.cache != nil {
		var d tmdb.Details
		ok, err := e.cache.Get(ctx, key, &d)
		if err == nil && ok && d.ID == id {
			return &d, true, nil
		}
	}
	d, err := e.api.MovieDetails(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if e.cache != nil {
		if err := e.cache.PutWithTTL(ctx, key, d, e.opts.CacheTTL); err != nil {
			e.logger.Debug("detail cache write failed", logging.MovieID(id), logging.Error(err))
		}
	}
	return d, false, nil
}

func enriched(item catalog.OutputItem) bool {
	return item.Poster != "" && !strings.HasPrefix(item.ID, "tmdb:")
}

func (e *Enricher) apply(item *catalog.OutputItem, d *tmdb.Details) {
	if id := strings.TrimSpace(d.IMDBID); id != "" {
		item.ID = id
	}
	if d.Title != "" {
		item.Name = d.Title
	}
	if d.Overview != "" {
		item.Description = d.Overview
	}
	if d.PosterPath != "" {
		item.Poster = e.opts.ImageBaseURL + "/w500" + d.PosterPath
	}
	if d.BackdropPath != "" {
		item.Background = e.opts.ImageBaseURL + "/original" + d.BackdropPath
	}
	if d.ReleaseDate != "" {
		item.ReleaseDate = d.ReleaseDate
		if year := d.ReleaseDate; len(year) >= 4 {
			item.ReleaseInfo = year[:4]
		}
	}
	if d.VoteAverage > 0 {
		item.IMDBRating = fmt.Sprintf("%.1f", d.VoteAverage)
	}
	if genres := d.GenreNames(); len(genres) > 0 {
		item.Genres = genres
	}
	if d.Runtime > 0 {
		item.Runtime = fmt.Sprintf("%d min", d.Runtime)
	}
	if cast := d.TopCast(3); len(cast) > 0 {
		item.Cast = cast
	}
	if director := d.Director(); director != "" {
		item.Director = []string{director}
	}
	item.Tagline = d.Tagline
}
