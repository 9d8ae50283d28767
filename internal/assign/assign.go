// Package assign resolves overlapping category candidates into a single
// category per item and fills each category up to its capacity.
package assign

import (
	"log/slog"
	"sort"
	"strings"

	"marquee/internal/catalog"
	"marquee/internal/logging"
	"marquee/internal/ranking"
	"marquee/internal/rotation"
	"marquee/internal/textutil"
)

// Options holds the fixed fallback thresholds used by the relaxation
// passes. Categories may override either set.
type Options struct {
	Relaxed catalog.Thresholds
	Minimal catalog.Thresholds
}

// DefaultOptions returns the production backfill thresholds.
func DefaultOptions() Options {
	return Options{
		Relaxed: catalog.Thresholds{MinVotes: 50, MinRating: 5.0},
		Minimal: catalog.Thresholds{MinVotes: 10, MinRating: 4.0},
	}
}

// Input is everything the assigner needs for one run. Scored holds the
// per-category scores computed in parallel beforehand, in pool order.
type Input struct {
	Pools  map[string][]catalog.CandidateItem
	Scored map[string][]catalog.ScoredItem
	Manual map[int64]string
	Day    rotation.DayContext
	Recent map[int64]struct{}
}

// Result is the finalized assignment.
type Result struct {
	Lists    map[string][]catalog.ScoredItem
	Owner    map[int64]string
	Deficits map[string]int
	Excluded map[string]int
	Filled   map[catalog.Source]int
}

// Assigner performs the sequential claim-and-fill reduction.
type Assigner struct {
	specs  []catalog.CategorySpec
	byCode map[string]catalog.CategorySpec
	calc   *ranking.Calculator
	opts   Options
	logger *slog.Logger
}

// New builds an assigner over specs in their configured order.
func New(specs []catalog.CategorySpec, calc *ranking.Calculator, opts Options, logger *slog.Logger) *Assigner {
	byCode := make(map[string]catalog.CategorySpec, len(specs))
	for _, spec := range specs {
		byCode[spec.Code] = spec
	}
	return &Assigner{
		specs:  specs,
		byCode: byCode,
		calc:   calc,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "assign"),
	}
}

// ScoreCategory scores every candidate of one category. It is read-only and
// safe to run concurrently for distinct categories.
func ScoreCategory(calc *ranking.Calculator, code string, pool []catalog.CandidateItem, day rotation.DayContext, recent map[int64]struct{}) []catalog.ScoredItem {
	out := make([]catalog.ScoredItem, len(pool))
	for i, item := range pool {
		out[i] = catalog.ScoredItem{
			Item:         item,
			CategoryCode: code,
			Score:        calc.Score(item, code, day, recent),
			Source:       catalog.SourceScored,
		}
	}
	return out
}

type state struct {
	lists map[string][]catalog.ScoredItem
	owner map[int64]string
}

func (s *state) claim(item catalog.ScoredItem) {
	s.lists[item.CategoryCode] = append(s.lists[item.CategoryCode], item)
	s.owner[item.Item.ID] = item.CategoryCode
}

func (s *state) used(id int64) bool {
	_, ok := s.owner[id]
	return ok
}

// Assign runs manual placement, best-category selection, truncation and the
// backfill passes. All mutation of the used-id set happens here, on the
// calling goroutine.
func (a *Assigner) Assign(in Input) Result {
	st := &state{
		lists: make(map[string][]catalog.ScoredItem, len(a.specs)),
		owner: make(map[int64]string),
	}
	res := Result{
		Deficits: make(map[string]int),
		Excluded: make(map[string]int),
		Filled:   make(map[catalog.Source]int),
	}

	manual := a.placeManual(in, st)
	res.Filled[catalog.SourceManual] = manual

	winners := a.bestCategory(in, st, res.Excluded)
	for _, spec := range a.specs {
		group := winners[spec.Code]
		sortByScore(group)
		room := spec.Capacity - len(st.lists[spec.Code])
		if room < 0 {
			room = 0
		}
		if len(group) > room {
			group = group[:room]
		}
		for _, item := range group {
			st.claim(item)
		}
		sortByScore(st.lists[spec.Code])
		res.Filled[catalog.SourceScored] += len(group)
	}

	short := a.shortCategories(st)
	// The same-score pass merges into the main block; the relaxed and
	// minimal passes append their own blocks below it.
	passes := []struct {
		source catalog.Source
		fill   func(catalog.CategorySpec, Input, *state) int
		resort bool
	}{
		{catalog.SourceScored, a.backfillScored, true},
		{catalog.SourceRelaxed, a.backfillRelaxed, false},
		{catalog.SourceMinimal, a.backfillMinimal, false},
	}
	for i, pass := range passes {
		if len(short) == 0 {
			break
		}
		for _, spec := range short {
			res.Filled[pass.source] += pass.fill(spec, in, st)
			if pass.resort {
				sortByScore(st.lists[spec.Code])
			}
		}
		short = a.shortCategories(st)
		if len(short) > 0 {
			a.logger.Info("categories short after backfill pass",
				logging.Int("pass", i+1),
				logging.String("categories", joinCodes(short)),
			)
		}
	}

	for _, spec := range short {
		shortfall := spec.Capacity - len(st.lists[spec.Code])
		res.Deficits[spec.Code] = shortfall
		logging.WarnWithContext(a.logger, "category below capacity", "capacity_deficit",
			logging.String(logging.FieldCategory, spec.Code),
			logging.Int("capacity", spec.Capacity),
			logging.Int("filled", len(st.lists[spec.Code])),
			logging.Int("shortfall", shortfall),
			logging.String(logging.FieldImpact, "category published with fewer items"),
			logging.String(logging.FieldErrorHint, "widen the fetch schedule or add manual assignments"),
		)
	}
	for code, count := range res.Excluded {
		a.logger.Debug("candidates excluded by quality gate",
			logging.String(logging.FieldCategory, code),
			logging.Int("excluded", count),
		)
	}

	res.Lists = st.lists
	res.Owner = st.owner
	return res
}

// placeManual puts manually classified items into their categories ahead of
// scoring. Ids are processed in ascending order.
func (a *Assigner) placeManual(in Input, st *state) int {
	if len(in.Manual) == 0 {
		return 0
	}
	ids := make([]int64, 0, len(in.Manual))
	for id := range in.Manual {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	placed := 0
	for _, id := range ids {
		code := textutil.NormalizeCode(in.Manual[id])
		spec, ok := a.byCode[code]
		if !ok {
			logging.WarnWithContext(a.logger, "manual assignment targets unknown category", "manual_unknown_category",
				logging.MovieID(id),
				logging.String(logging.FieldCategory, code),
				logging.String(logging.FieldImpact, "assignment ignored"),
				logging.String(logging.FieldErrorHint, "fix the category code in the classification file"),
			)
			continue
		}
		if len(st.lists[code]) >= spec.Capacity {
			logging.Decision(a.logger, "manual assignment skipped; category full",
				"manual_placement", "skipped", "category full",
				logging.MovieID(id),
				logging.String(logging.FieldCategory, code),
			)
			continue
		}
		item := a.lookupCandidate(in, id, code)
		st.claim(catalog.ScoredItem{
			Item:         item,
			CategoryCode: code,
			Score:        a.calc.Ungated(item, code, in.Day, in.Recent),
			Source:       catalog.SourceManual,
		})
		placed++
	}
	return placed
}

func (a *Assigner) lookupCandidate(in Input, id int64, code string) catalog.CandidateItem {
	for _, item := range in.Pools[code] {
		if item.ID == id {
			return item
		}
	}
	for _, spec := range a.specs {
		for _, item := range in.Pools[spec.Code] {
			if item.ID == id {
				return item
			}
		}
	}
	return catalog.CandidateItem{ID: id}
}

// bestCategory keeps each item's single highest-scoring category. Ties go
// to the first category seen in configured order.
func (a *Assigner) bestCategory(in Input, st *state, excluded map[string]int) map[string][]catalog.ScoredItem {
	best := make(map[int64]catalog.ScoredItem)
	var order []int64
	for _, spec := range a.specs {
		for _, scored := range in.Scored[spec.Code] {
			if scored.Excluded() {
				excluded[spec.Code]++
				continue
			}
			id := scored.Item.ID
			if st.used(id) {
				continue
			}
			current, seen := best[id]
			if !seen {
				order = append(order, id)
				best[id] = scored
				continue
			}
			if scored.Score > current.Score {
				best[id] = scored
			}
		}
	}
	groups := make(map[string][]catalog.ScoredItem, len(a.specs))
	for _, id := range order {
		winner := best[id]
		groups[winner.CategoryCode] = append(groups[winner.CategoryCode], winner)
	}
	return groups
}

func (a *Assigner) backfillScored(spec catalog.CategorySpec, in Input, st *state) int {
	candidates := make([]catalog.ScoredItem, 0)
	for _, scored := range in.Scored[spec.Code] {
		if scored.Excluded() || st.used(scored.Item.ID) {
			continue
		}
		candidates = append(candidates, scored)
	}
	return fill(spec, candidates, st)
}

func (a *Assigner) backfillRelaxed(spec catalog.CategorySpec, in Input, st *state) int {
	thresholds := a.opts.Relaxed
	if spec.Relaxed != nil {
		thresholds = *spec.Relaxed
	}
	return a.backfillWith(spec, in, st, thresholds, catalog.SourceRelaxed, ranking.BaseScore)
}

func (a *Assigner) backfillMinimal(spec catalog.CategorySpec, in Input, st *state) int {
	thresholds := a.opts.Minimal
	if spec.Minimal != nil {
		thresholds = *spec.Minimal
	}
	return a.backfillWith(spec, in, st, thresholds, catalog.SourceMinimal, ranking.MinimalScore)
}

func (a *Assigner) backfillWith(spec catalog.CategorySpec, in Input, st *state, thresholds catalog.Thresholds, source catalog.Source, score func(catalog.CandidateItem) float64) int {
	seen := make(map[int64]struct{})
	candidates := make([]catalog.ScoredItem, 0)
	for _, item := range in.Pools[spec.Code] {
		if st.used(item.ID) || !thresholds.Allows(item) {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		candidates = append(candidates, catalog.ScoredItem{
			Item:         item,
			CategoryCode: spec.Code,
			Score:        score(item),
			Source:       source,
		})
	}
	return fill(spec, candidates, st)
}

// fill claims the best candidates until the category reaches capacity.
func fill(spec catalog.CategorySpec, candidates []catalog.ScoredItem, st *state) int {
	sortByScore(candidates)
	added := 0
	for _, item := range candidates {
		if len(st.lists[spec.Code]) >= spec.Capacity {
			break
		}
		if st.used(item.Item.ID) {
			continue
		}
		st.claim(item)
		added++
	}
	return added
}

func (a *Assigner) shortCategories(st *state) []catalog.CategorySpec {
	var short []catalog.CategorySpec
	for _, spec := range a.specs {
		if len(st.lists[spec.Code]) < spec.Capacity {
			short = append(short, spec)
		}
	}
	return short
}

func sortByScore(items []catalog.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}

func joinCodes(specs []catalog.CategorySpec) string {
	codes := make([]string, len(specs))
	for i, spec := range specs {
		codes[i] = spec.Code
	}
	return strings.Join(codes, ",")
}
