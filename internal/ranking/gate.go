package ranking

import "marquee/internal/catalog"

// DefaultThresholds applies to categories without their own thresholds.
var DefaultThresholds = catalog.Thresholds{MinVotes: 100, MinRating: 5.5, MinPopularity: 2}

// Gate is the per-category eligibility predicate.
type Gate struct {
	fallback catalog.Thresholds
	byCode   map[string]catalog.Thresholds
}

// NewGate indexes the thresholds declared by specs.
func NewGate(specs []catalog.CategorySpec, fallback catalog.Thresholds) *Gate {
	g := &Gate{fallback: fallback, byCode: make(map[string]catalog.Thresholds, len(specs))}
	for _, spec := range specs {
		if spec.Thresholds != nil {
			g.byCode[spec.Code] = *spec.Thresholds
		}
	}
	return g
}

// Thresholds returns the thresholds in force for code.
func (g *Gate) Thresholds(code string) catalog.Thresholds {
	if t, ok := g.byCode[code]; ok {
		return t
	}
	return g.fallback
}

// Passes reports whether item is eligible for code.
func (g *Gate) Passes(item catalog.CandidateItem, code string) bool {
	return g.Thresholds(code).Allows(item)
}
