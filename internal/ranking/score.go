package ranking

import (
	"math"

	"marquee/internal/catalog"
	"marquee/internal/rotation"
)

// Options tunes the calculator.
type Options struct {
	Default       catalog.Thresholds
	RecentPenalty float64
	JitterMax     float64
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{Default: DefaultThresholds, RecentPenalty: 0.70, JitterMax: 0.15}
}

// Calculator scores candidates for a category.
type Calculator struct {
	gate          *Gate
	personalities map[string]*catalog.Personality
	recentPenalty float64
	jitterMax     float64
}

// NewCalculator prepares a calculator for the given categories.
func NewCalculator(specs []catalog.CategorySpec, opts Options) *Calculator {
	c := &Calculator{
		gate:          NewGate(specs, opts.Default),
		personalities: make(map[string]*catalog.Personality, len(specs)),
		recentPenalty: opts.RecentPenalty,
		jitterMax:     opts.JitterMax,
	}
	for _, spec := range specs {
		if spec.Personality != nil {
			c.personalities[spec.Code] = spec.Personality
		}
	}
	return c
}

// Gate exposes the calculator's quality gate.
func (c *Calculator) Gate() *Gate {
	return c.gate
}

// Score returns the full pipeline score, or catalog.ExcludedScore when the
// item fails the category gate.
func (c *Calculator) Score(item catalog.CandidateItem, code string, day rotation.DayContext, recent map[int64]struct{}) float64 {
	if !c.gate.Passes(item, code) {
		return catalog.ExcludedScore
	}
	return c.Ungated(item, code, day, recent)
}

// Ungated runs the pipeline without consulting the gate.
func (c *Calculator) Ungated(item catalog.CandidateItem, code string, day rotation.DayContext, recent map[int64]struct{}) float64 {
	score := BaseScore(item)
	score = ApplyStrategy(score, item, day)
	score = ApplyPersonality(score, item, c.personalities[code], day)
	score *= 1 + Jitter(day.ISODate(), code, item.ID, c.jitterMax)
	return ApplyRecency(score, item.ID, recent, c.recentPenalty)
}

// BaseScore blends popularity, rating and vote volume into roughly [0,100].
func BaseScore(item catalog.CandidateItem) float64 {
	popularity := math.Min(math.Max(item.Popularity, 0)/100, 1) * 40
	rating := (item.Rating / 10) * 35
	return popularity + rating + voteConfidence(item.VoteCount)*25
}

// MinimalScore is the simplified score used by the last backfill pass.
func MinimalScore(item catalog.CandidateItem) float64 {
	return item.Popularity + item.Rating
}

// ApplyRecency penalizes ids present in recent.
func ApplyRecency(score float64, id int64, recent map[int64]struct{}, penalty float64) float64 {
	if _, ok := recent[id]; ok {
		return score * penalty
	}
	return score
}

// voteConfidence maps a vote count onto [0,1] on a log scale.
func voteConfidence(votes int64) float64 {
	if votes < 0 {
		votes = 0
	}
	return math.Min(math.Log10(float64(votes)+1)/5, 1)
}
