package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"marquee/internal/assign"
	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/merge"
	"marquee/internal/ranking"
	"marquee/internal/rotation"
)

// Options groups the tuning of every engine stage.
type Options struct {
	Ranking ranking.Options
	Assign  assign.Options
	Merge   merge.Options
}

// DefaultOptions returns production tuning for all stages.
func DefaultOptions() Options {
	return Options{
		Ranking: ranking.DefaultOptions(),
		Assign:  assign.DefaultOptions(),
		Merge:   merge.DefaultOptions(),
	}
}

// OptionsFromConfig maps configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Ranking: ranking.Options{
			Default:       cfg.Ranking.Default,
			RecentPenalty: cfg.Ranking.RecentPenalty,
			JitterMax:     cfg.Ranking.JitterMax,
		},
		Assign: assign.Options{
			Relaxed: cfg.Ranking.Relaxed,
			Minimal: cfg.Ranking.Minimal,
		},
		Merge: merge.Options{
			FreshFloor:  cfg.Merge.FreshFloor,
			TopBlock:    cfg.Merge.TopBlock,
			PreferNovel: cfg.Merge.PreferNovel,
		},
	}
}

// Input carries everything a run consumes.
type Input struct {
	Candidates  map[string][]catalog.CandidateItem
	Previous    *catalog.Snapshot
	Recent      map[int64]struct{}
	Manual      map[int64]string
	Day         rotation.DayContext
	GeneratedAt time.Time
}

// Report describes how the snapshot was assembled.
type Report struct {
	Deficits  map[string]int            `json:"deficits"`
	Excluded  map[string]int            `json:"excluded"`
	Filled    map[catalog.Source]int    `json:"filled"`
	Merge     map[string]merge.Stats    `json:"merge"`
	FreshOnly bool                      `json:"freshOnly"`
	Unknown   []string                  `json:"unknownCategories,omitempty"`
	Sources   map[string]map[string]int `json:"sources"`
}

// Result is the snapshot plus its assembly report.
type Result struct {
	Snapshot catalog.Snapshot
	Report   Report
}

// Engine is immutable after construction and may be reused across runs.
type Engine struct {
	specs    []catalog.CategorySpec
	calc     *ranking.Calculator
	assigner *assign.Assigner
	merger   *merge.Merger
	logger   *slog.Logger
}

// ErrInvalidConfig wraps every construction failure.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// New validates specs and options and builds an engine.
func New(specs []catalog.CategorySpec, opts Options, logger *slog.Logger) (*Engine, error) {
	if err := validate(specs, opts); err != nil {
		return nil, err
	}
	calc := ranking.NewCalculator(specs, opts.Ranking)
	return &Engine{
		specs:    append([]catalog.CategorySpec(nil), specs...),
		calc:     calc,
		assigner: assign.New(specs, calc, opts.Assign, logger),
		merger:   merge.New(calc, opts.Merge, logger),
		logger:   logging.NewComponentLogger(logger, "engine"),
	}, nil
}

// FromConfig builds an engine from application configuration.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	return New(cfg.CategorySpecs(), OptionsFromConfig(cfg), logger)
}

func validate(specs []catalog.CategorySpec, opts Options) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Code == "" {
			return fmt.Errorf("%w: category without code", ErrInvalidConfig)
		}
		if _, dup := seen[spec.Code]; dup {
			return fmt.Errorf("%w: duplicate category %s", ErrInvalidConfig, spec.Code)
		}
		seen[spec.Code] = struct{}{}
		if spec.Capacity < 0 {
			return fmt.Errorf("%w: category %s has negative capacity %d", ErrInvalidConfig, spec.Code, spec.Capacity)
		}
	}
	if opts.Merge.FreshFloor < 0 || opts.Merge.TopBlock < opts.Merge.FreshFloor {
		return fmt.Errorf("%w: fresh floor %d must be within top block %d", ErrInvalidConfig, opts.Merge.FreshFloor, opts.Merge.TopBlock)
	}
	if opts.Ranking.RecentPenalty <= 0 || opts.Ranking.RecentPenalty > 1 {
		return fmt.Errorf("%w: recent penalty %v out of range", ErrInvalidConfig, opts.Ranking.RecentPenalty)
	}
	if opts.Ranking.JitterMax < 0 {
		return fmt.Errorf("%w: negative jitter", ErrInvalidConfig)
	}
	return nil
}

// Specs returns the categories in configured order.
func (e *Engine) Specs() []catalog.CategorySpec {
	return append([]catalog.CategorySpec(nil), e.specs...)
}

// Calculator exposes the scoring pipeline used by the engine.
func (e *Engine) Calculator() *ranking.Calculator {
	return e.calc
}

// Run assembles a snapshot. Identical inputs always produce identical
// output.
func (e *Engine) Run(in Input) Result {
	report := Report{
		Merge:   make(map[string]merge.Stats, len(e.specs)),
		Sources: make(map[string]map[string]int, len(e.specs)),
		Unknown: e.unknownCodes(in.Candidates),
	}
	if len(report.Unknown) > 0 {
		logging.WarnWithContext(e.logger, "candidates supplied for unconfigured categories", "unknown_category",
			logging.Any("categories", report.Unknown),
			logging.String(logging.FieldImpact, "candidates ignored"),
			logging.String(logging.FieldErrorHint, "add the categories to the config or stop fetching them"),
		)
	}

	previous := e.usablePrevious(in.Previous)
	report.FreshOnly = previous == nil

	scored := e.scoreAll(in)
	assigned := e.assigner.Assign(assign.Input{
		Pools:  in.Candidates,
		Scored: scored,
		Manual: in.Manual,
		Day:    in.Day,
		Recent: in.Recent,
	})
	report.Deficits = assigned.Deficits
	report.Excluded = assigned.Excluded
	report.Filled = assigned.Filled

	lists, stats := e.mergeAll(in, previous, assigned)

	snapshot := catalog.Snapshot{
		Categories:  make(map[string][]catalog.OutputItem, len(e.specs)),
		GeneratedAt: in.GeneratedAt,
		Date:        in.Day.ISODate(),
		Strategy:    string(in.Day.Strategy),
	}
	if snapshot.GeneratedAt.IsZero() {
		snapshot.GeneratedAt = in.Day.Date
	}
	for i, spec := range e.specs {
		snapshot.Categories[spec.Code] = lists[i]
		report.Merge[spec.Code] = stats[i]
		sources := make(map[string]int)
		for _, item := range lists[i] {
			sources[item.Source]++
		}
		report.Sources[spec.Code] = sources
	}

	e.logger.Info("catalog assembled",
		logging.String(logging.FieldRunDate, snapshot.Date),
		logging.String(logging.FieldStrategy, snapshot.Strategy),
		logging.Int("categories", len(snapshot.Categories)),
		logging.Int("total", snapshot.Total()),
		logging.Int("short_categories", len(report.Deficits)),
		logging.Bool("fresh_only", report.FreshOnly),
	)
	return Result{Snapshot: snapshot, Report: report}
}

func (e *Engine) usablePrevious(prev *catalog.Snapshot) *catalog.Snapshot {
	if prev == nil {
		logging.Decision(e.logger, "no previous snapshot; publishing fresh items only",
			"merge_mode", "fresh_only", "no previous snapshot")
		return nil
	}
	if err := prev.Validate(); err != nil {
		logging.Decision(e.logger, "previous snapshot unusable; publishing fresh items only",
			"merge_mode", "fresh_only", "previous snapshot malformed", logging.Error(err))
		return nil
	}
	return prev
}

// scoreAll scores each category on its own goroutine. Each goroutine writes
// only its own slot.
func (e *Engine) scoreAll(in Input) map[string][]catalog.ScoredItem {
	results := make([][]catalog.ScoredItem, len(e.specs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, spec := range e.specs {
		g.Go(func() error {
			results[i] = assign.ScoreCategory(e.calc, spec.Code, in.Candidates[spec.Code], in.Day, in.Recent)
			return nil
		})
	}
	_ = g.Wait()

	scored := make(map[string][]catalog.ScoredItem, len(e.specs))
	for i, spec := range e.specs {
		scored[spec.Code] = results[i]
	}
	return scored
}

// mergeAll blends every category with its previous list. Cached items that
// appear in several previous lists stay with the first category in
// configured order; that filtering happens before the parallel phase.
func (e *Engine) mergeAll(in Input, previous *catalog.Snapshot, assigned assign.Result) ([][]catalog.OutputItem, []merge.Stats) {
	claimed := make(map[int64]struct{}, len(assigned.Owner))
	for id := range assigned.Owner {
		claimed[id] = struct{}{}
	}

	cached := make([][]catalog.OutputItem, len(e.specs))
	crossDup := make([]int, len(e.specs))
	if previous != nil {
		cachedOwner := make(map[int64]string)
		for i, spec := range e.specs {
			for _, item := range previous.Categories[spec.Code] {
				if id, ok := catalog.ResolveIdentity(item); ok {
					if owner, taken := cachedOwner[id]; taken && owner != spec.Code {
						crossDup[i]++
						continue
					}
					cachedOwner[id] = spec.Code
				}
				cached[i] = append(cached[i], item)
			}
		}
	}

	lists := make([][]catalog.OutputItem, len(e.specs))
	stats := make([]merge.Stats, len(e.specs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, spec := range e.specs {
		g.Go(func() error {
			lists[i], stats[i] = e.merger.Merge(merge.Input{
				Spec:        spec,
				Fresh:       assigned.Lists[spec.Code],
				Cached:      cached[i],
				HasPrevious: previous != nil,
				Exclude:     claimed,
			}, in.Day, in.Recent)
			stats[i].Duplicates += crossDup[i]
			return nil
		})
	}
	_ = g.Wait()
	return lists, stats
}

func (e *Engine) unknownCodes(candidates map[string][]catalog.CandidateItem) []string {
	known := make(map[string]struct{}, len(e.specs))
	for _, spec := range e.specs {
		known[spec.Code] = struct{}{}
	}
	var unknown []string
	for code := range candidates {
		if _, ok := known[code]; !ok {
			unknown = append(unknown, code)
		}
	}
	sort.Strings(unknown)
	return unknown
}
