package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/engine"
	"marquee/internal/logging"
	"marquee/internal/metrics"
	"marquee/internal/overrides"
	"marquee/internal/rotation"
	"marquee/internal/source"
	"marquee/internal/store"
	"marquee/internal/tmdb"
)

// ErrLocked is returned when another update holds the run lock.
var ErrLocked = errors.New("another update is already running")

// Deps wires the updater's collaborators.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	API       tmdb.API
	Overrides *overrides.Table
	Logger    *slog.Logger
	Now       func() time.Time
}

// Options selects the run date and persistence mode.
type Options struct {
	Day    *rotation.DayContext
	DryRun bool
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Day      rotation.DayContext
	Snapshot *catalog.Snapshot
	Metadata catalog.RunMetadata
	Engine   engine.Report
	Fetch    source.FetchReport
	Enrich   source.EnrichReport
	Manual   int
	DryRun   bool
}

// Updater runs the pipeline. It is safe to reuse across runs but not to
// run concurrently; the file lock also guards against other processes.
type Updater struct {
	cfg       *config.Config
	store     *store.Store
	api       tmdb.API
	overrides *overrides.Table
	engine    *engine.Engine
	fetcher   *source.Fetcher
	enricher  *source.Enricher
	logger    *slog.Logger
	now       func() time.Time
}

type requestCounter interface {
	Requests() int64
}

// New validates the configuration and assembles the pipeline.
func New(deps Deps) (*Updater, error) {
	if deps.Config == nil || deps.Store == nil || deps.API == nil {
		return nil, errors.New("updater requires config, store and api")
	}
	logger := logging.NewComponentLogger(deps.Logger, "update")
	eng, err := engine.FromConfig(deps.Config, deps.Logger)
	if err != nil {
		return nil, err
	}
	cfg := deps.Config
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	specs := eng.Specs()
	return &Updater{
		cfg:       cfg,
		store:     deps.Store,
		api:       deps.API,
		overrides: deps.Overrides,
		engine:    eng,
		fetcher: source.NewFetcher(deps.API, specs, source.FetchOptions{
			TargetNewPerCategory: cfg.Fetch.TargetNewPerCategory,
			MaxPages:             cfg.Fetch.MaxPages,
		}, deps.Logger),
		enricher: source.NewEnricher(deps.API, deps.Store, source.EnrichOptions{
			ImageBaseURL: cfg.TMDB.ImageBaseURL,
			Concurrency:  cfg.TMDB.DetailConcurrency,
			CacheTTL:     time.Duration(cfg.TMDB.DetailCacheHours) * time.Hour,
			KeyFor:       store.DetailKey,
		}, deps.Logger),
		logger: logger,
		now:    now,
	}, nil
}

// Run executes one update.
func (u *Updater) Run(ctx context.Context, opts Options) (summary *Summary, err error) {
	if err := u.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lock := flock.New(u.cfg.Paths.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			u.logger.Warn("failed to release update lock", logging.Error(unlockErr))
		}
	}()

	start := u.now()
	runID := uuid.NewString()
	day := rotation.ForDate(start)
	if opts.Day != nil {
		day = *opts.Day
	}
	logger := u.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldRunDate, day.ISODate()),
		logging.String(logging.FieldStrategy, string(day.Strategy)),
	)
	logger.Info("update started", logging.Bool("dry_run", opts.DryRun), logging.Int("week_index", day.WeekIndex))

	run := metrics.NewRun()
	requestsBefore := u.requests()
	defer func() {
		if opts.DryRun {
			return
		}
		run.APIRequests.Set(float64(u.requests() - requestsBefore))
		run.Finish(start, u.now(), err == nil)
		if writeErr := run.WriteTextfile(u.cfg.Paths.MetricsFile); writeErr != nil {
			logger.Warn("failed to write metrics textfile", logging.Error(writeErr))
		}
	}()

	previous := u.loadPrevious(ctx, logger)
	history := u.loadHistory(ctx, logger)
	recent := history.Set()
	manual := u.loadManual(logger)

	pools, fetchReport, err := u.fetcher.Fetch(ctx, day, recent)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	run.FetchFailures.Set(float64(fetchReport.Failures))
	resolved := u.fetcher.ResolveManual(ctx, manual, pools)

	result := u.engine.Run(engine.Input{
		Candidates:  pools,
		Previous:    previous,
		Recent:      recent,
		Manual:      manual,
		Day:         day,
		GeneratedAt: start.UTC(),
	})
	snap := result.Snapshot

	order := make([]string, 0, len(u.engine.Specs()))
	for _, spec := range u.engine.Specs() {
		order = append(order, spec.Code)
	}
	enrichReport, err := u.enricher.Enrich(ctx, &snap, order)
	if err != nil {
		return nil, err
	}
	run.EnrichFailed.Set(float64(enrichReport.Failed))

	meta := u.metadata(runID, start, day, &snap, result.Report, u.requests()-requestsBefore)
	summary = &Summary{
		RunID:    runID,
		Day:      day,
		Snapshot: &snap,
		Metadata: meta,
		Engine:   result.Report,
		Fetch:    fetchReport,
		Enrich:   enrichReport,
		Manual:   resolved,
		DryRun:   opts.DryRun,
	}
	for _, spec := range u.engine.Specs() {
		stats := result.Report.Merge[spec.Code]
		run.ObserveCategory(spec.Code, result.Report.Sources[spec.Code], result.Report.Deficits[spec.Code], stats.Unresolved, stats.FreshPercent()/100)
	}

	if opts.DryRun {
		logger.Info("dry run complete; nothing persisted", logging.Int("total", snap.Total()))
		return summary, nil
	}

	if err := u.store.SaveSnapshot(ctx, store.KeyCatalog, &snap); err != nil {
		logging.ErrorWithContext(logger, "failed to persist catalog", "persist_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "catalog left at the previous run"),
		)
		return nil, fmt.Errorf("persist catalog: %w", err)
	}
	u.persistSecondary(ctx, logger, previous, history, &snap, day, meta)

	logger.Info("update finished",
		logging.Int("total", snap.Total()),
		logging.Int64("api_requests", meta.APIRequests),
		logging.Duration("duration", u.now().Sub(start)),
	)
	return summary, nil
}

func (u *Updater) requests() int64 {
	if counter, ok := u.api.(requestCounter); ok {
		return counter.Requests()
	}
	return 0
}

func (u *Updater) loadPrevious(ctx context.Context, logger *slog.Logger) *catalog.Snapshot {
	snap, err := u.store.LoadSnapshot(ctx, store.KeyCatalog)
	if err != nil {
		logger.Info("stored catalog unreadable; treating as missing", logging.Error(err))
		return nil
	}
	return snap
}

func (u *Updater) loadHistory(ctx context.Context, logger *slog.Logger) *catalog.RecentHistory {
	history, err := u.store.LoadHistory(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "recent history unreadable; starting empty", "history_reset",
			logging.Error(err),
			logging.String(logging.FieldImpact, "repeat penalty skipped for this run"),
		)
		return &catalog.RecentHistory{}
	}
	return history
}

func (u *Updater) loadManual(logger *slog.Logger) map[int64]string {
	manual, err := u.overrides.Assignments()
	if err != nil {
		logging.WarnWithContext(logger, "manual classifications unreadable", "overrides_invalid",
			logging.String("path", u.overrides.Path()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "manual placements skipped for this run"),
			logging.String(logging.FieldErrorHint, "run 'marquee assign check' to locate the problem"),
		)
		return nil
	}
	return manual
}

func (u *Updater) persistSecondary(ctx context.Context, logger *slog.Logger, previous *catalog.Snapshot, history *catalog.RecentHistory, snap *catalog.Snapshot, day rotation.DayContext, meta catalog.RunMetadata) {
	warn := func(key string, err error) {
		logging.WarnWithContext(logger, "failed to persist record", "persist_partial",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "catalog saved; record refreshed on the next run"),
		)
	}
	if previous != nil {
		if err := u.store.SaveSnapshot(ctx, store.KeyCatalogPrevious, previous); err != nil {
			warn(store.KeyCatalogPrevious, err)
		}
	}
	history.Record(day.ISODate(), snap.Identities(), u.cfg.Catalog.HistoryRuns, u.cfg.Catalog.HistoryCapacity, u.now())
	if err := u.store.Put(ctx, store.KeyRecent, history); err != nil {
		warn(store.KeyRecent, err)
	}
	if err := u.store.Put(ctx, store.KeyMetadata, meta); err != nil {
		warn(store.KeyMetadata, err)
	}
	if purged, err := u.store.PurgeExpired(ctx); err != nil {
		logger.Debug("detail cache purge failed", logging.Error(err))
	} else if purged > 0 {
		logger.Debug("purged expired detail records", logging.Int64("count", purged))
	}
}

func (u *Updater) metadata(runID string, start time.Time, day rotation.DayContext, snap *catalog.Snapshot, report engine.Report, requests int64) catalog.RunMetadata {
	merged := make(map[string]catalog.MergeCounts, len(report.Merge))
	for code, s := range report.Merge {
		merged[code] = catalog.MergeCounts{
			Total:      s.Total,
			Fresh:      s.Fresh,
			Cached:     s.Cached,
			Unresolved: s.Unresolved,
			Duplicates: s.Duplicates,
		}
	}
	return catalog.RunMetadata{
		RunID:       runID,
		UpdatedAt:   u.now().UTC(),
		Date:        day.ISODate(),
		Strategy:    string(day.Strategy),
		WeekIndex:   day.WeekIndex,
		Pages:       day.Pages(),
		Counts:      snap.Counts(),
		Total:       snap.Total(),
		APIRequests: requests,
		Merge:       merged,
		Deficits:    report.Deficits,
		FreshOnly:   report.FreshOnly,
		Duration:    u.now().Sub(start),
	}
}
