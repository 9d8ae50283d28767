package ranking_test

import (
	"math"
	"testing"
	"time"

	"marquee/internal/catalog"
	"marquee/internal/ranking"
	"marquee/internal/rotation"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// 2026-03-05 is a Thursday (BLOCKBUSTERS).
var thursday = rotation.ForDate(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))

func TestBaseScore(t *testing.T) {
	max := catalog.CandidateItem{Popularity: 250, Rating: 10, VoteCount: 1_000_000}
	if got := ranking.BaseScore(max); !approx(got, 100) {
		t.Fatalf("max base = %v, want 100", got)
	}
	if got := ranking.BaseScore(catalog.CandidateItem{}); got != 0 {
		t.Fatalf("zero metrics base = %v, want 0", got)
	}
	mid := catalog.CandidateItem{Popularity: 50, Rating: 5, VoteCount: 0}
	if got := ranking.BaseScore(mid); !approx(got, 20+17.5) {
		t.Fatalf("mid base = %v", got)
	}
}

func TestGateFallsBackToDefault(t *testing.T) {
	specs := []catalog.CategorySpec{
		{Code: "DOCUMENTARY", Thresholds: &catalog.Thresholds{MinVotes: 50, MinRating: 5.5, MinPopularity: 1}},
		{Code: "ACTION"},
	}
	gate := ranking.NewGate(specs, ranking.DefaultThresholds)
	item := catalog.CandidateItem{VoteCount: 60, Rating: 6, Popularity: 1.5}
	if !gate.Passes(item, "DOCUMENTARY") {
		t.Fatal("expected documentary thresholds to admit item")
	}
	if gate.Passes(item, "ACTION") {
		t.Fatal("expected default thresholds to reject item")
	}
	if gate.Passes(catalog.CandidateItem{VoteCount: 500, Rating: 5.4, Popularity: 10}, "ACTION") {
		t.Fatal("rating below default should fail")
	}
	if !gate.Passes(catalog.CandidateItem{VoteCount: 100, Rating: 5.5, Popularity: 2}, "UNKNOWN") {
		t.Fatal("thresholds are inclusive")
	}
}

func TestScoreReturnsSentinelWhenGated(t *testing.T) {
	calc := ranking.NewCalculator(nil, ranking.DefaultOptions())
	got := calc.Score(catalog.CandidateItem{ID: 1, VoteCount: 3}, "ACTION", thursday, nil)
	if got != catalog.ExcludedScore {
		t.Fatalf("score = %v, want sentinel", got)
	}
}

func TestRecencyPenaltyIsExactlySeventyPercent(t *testing.T) {
	recent := map[int64]struct{}{7: {}}
	if got := ranking.ApplyRecency(100, 7, recent, 0.70); !approx(got, 70) {
		t.Fatalf("penalized = %v, want 70", got)
	}
	if got := ranking.ApplyRecency(100, 8, recent, 0.70); got != 100 {
		t.Fatalf("unpenalized = %v, want 100", got)
	}

	calc := ranking.NewCalculator(nil, ranking.DefaultOptions())
	item := catalog.CandidateItem{ID: 7, Popularity: 40, Rating: 7, VoteCount: 900, ReleaseDate: "2015-01-01"}
	plain := calc.Score(item, "ACTION", thursday, nil)
	penalized := calc.Score(item, "ACTION", thursday, recent)
	if !approx(penalized, plain*0.70) {
		t.Fatalf("penalized = %v, want %v", penalized, plain*0.70)
	}
}

func TestJitterIsDeterministicAndBounded(t *testing.T) {
	a := ranking.Jitter("2026-03-05", "ACTION", 550, 0.15)
	b := ranking.Jitter("2026-03-05", "ACTION", 550, 0.15)
	if a != b {
		t.Fatalf("jitter not stable: %v vs %v", a, b)
	}
	if ranking.Jitter("2026-03-05", "ACTION", 550, 0) != 0 {
		t.Fatal("zero max disables jitter")
	}
	varied := false
	for id := int64(1); id <= 200; id++ {
		f := ranking.Jitter("2026-03-05", "DRAMA", id, 0.15)
		if f < 0 || f >= 0.15 {
			t.Fatalf("jitter %v out of range for id %d", f, id)
		}
		if f != ranking.Jitter("2026-03-05", "DRAMA", 1, 0.15) {
			varied = true
		}
	}
	if !varied {
		t.Fatal("expected jitter to vary across ids")
	}
}

func TestScoreStaysWithinJitterBand(t *testing.T) {
	calc := ranking.NewCalculator(nil, ranking.DefaultOptions())
	for id := int64(1); id <= 50; id++ {
		item := catalog.CandidateItem{ID: id, Popularity: 50, Rating: 6.5, VoteCount: 400, ReleaseDate: "2010-06-01"}
		base := ranking.BaseScore(item)
		got := calc.Score(item, "ACTION", thursday, nil)
		if got < base || got >= base*1.15 {
			t.Fatalf("id %d score %v outside [%v, %v)", id, got, base, base*1.15)
		}
	}
}

func TestStrategyModifiers(t *testing.T) {
	day := func(s rotation.Strategy) rotation.DayContext {
		return rotation.DayContext{Strategy: s, Year: 2026, Month: 3}
	}
	recent := catalog.CandidateItem{Rating: 7, VoteCount: 100, ReleaseDate: "2026-01-10"}
	old := catalog.CandidateItem{Rating: 7, VoteCount: 2000, ReleaseDate: "2000-01-10"}
	undated := catalog.CandidateItem{Rating: 7}

	if got := ranking.ApplyStrategy(10, recent, day(rotation.FreshReleases)); !approx(got, 13) {
		t.Fatalf("fresh releases boost = %v", got)
	}
	if got := ranking.ApplyStrategy(10, old, day(rotation.FreshReleases)); !approx(got, 7) {
		t.Fatalf("fresh releases penalty = %v", got)
	}
	if got := ranking.ApplyStrategy(10, undated, day(rotation.FreshReleases)); !approx(got, 13) {
		t.Fatalf("undated items count as current year, got %v", got)
	}
	if got := ranking.ApplyStrategy(10, old, day(rotation.TimelessClassics)); !approx(got, 13) {
		t.Fatalf("classics boost = %v", got)
	}
	if got := ranking.ApplyStrategy(10, recent, day(rotation.TimelessClassics)); got != 10 {
		t.Fatalf("recent items unchanged by classics, got %v", got)
	}
	if got := ranking.ApplyStrategy(10, catalog.CandidateItem{Rating: 4}, day(rotation.CriticalDarlings)); !approx(got, 5) {
		t.Fatalf("critical darlings scale = %v", got)
	}
	gem := catalog.CandidateItem{Popularity: 10, Rating: 7.5}
	if got := ranking.ApplyStrategy(10, gem, day(rotation.HiddenGems)); !approx(got, 12.5) {
		t.Fatalf("hidden gem boost = %v", got)
	}
	hit := catalog.CandidateItem{Popularity: 300, VoteCount: 9000}
	if got := ranking.ApplyStrategy(10, hit, day(rotation.Blockbusters)); !approx(got, 10*1.25*1.1) {
		t.Fatalf("blockbuster boost = %v", got)
	}
}

func TestPersonalityModifiers(t *testing.T) {
	summer := rotation.DayContext{Strategy: rotation.Blockbusters, Year: 2026, Month: 7}
	action := &catalog.Personality{
		RecentYearBonus:     0.15,
		HighPopularityBonus: 0.1,
		SeasonalMonths:      []int{6, 7, 8},
		SeasonalBonus:       0.1,
	}
	item := catalog.CandidateItem{Popularity: 150, Rating: 7, ReleaseDate: "2025-05-01"}
	if got := ranking.ApplyPersonality(10, item, action, summer); !approx(got, 10*1.15*1.1*1.1) {
		t.Fatalf("action summer = %v", got)
	}
	if got := ranking.ApplyPersonality(10, item, nil, summer); got != 10 {
		t.Fatalf("nil personality must pass through, got %v", got)
	}

	western := &catalog.Personality{Eras: []catalog.Era{{From: 1950, To: 1980, Bonus: 0.15}}}
	if got := ranking.ApplyPersonality(10, catalog.CandidateItem{ReleaseDate: "1966-12-23"}, western, summer); !approx(got, 11.5) {
		t.Fatalf("western era = %v", got)
	}

	thriller := &catalog.Personality{SweetSpot: &catalog.RatingRange{Min: 7, Max: 8.5, Bonus: 0.1}}
	if got := ranking.ApplyPersonality(10, catalog.CandidateItem{Rating: 9}, thriller, summer); got != 10 {
		t.Fatalf("rating outside sweet spot unchanged, got %v", got)
	}

	drama := &catalog.Personality{AwardSeasonMonths: []int{1, 2, 3}, AwardSeasonBonus: 0.15}
	feb := rotation.DayContext{Year: 2026, Month: 2}
	if got := ranking.ApplyPersonality(10, catalog.CandidateItem{Rating: 7.4}, drama, feb); got != 10 {
		t.Fatalf("award bonus is rating gated, got %v", got)
	}
	if got := ranking.ApplyPersonality(10, catalog.CandidateItem{Rating: 8}, drama, feb); !approx(got, 11.5) {
		t.Fatalf("award bonus = %v", got)
	}

	comedy := &catalog.Personality{OlderFilmPenalty: 0.1}
	if got := ranking.ApplyPersonality(10, catalog.CandidateItem{ReleaseDate: "1990-01-01"}, comedy, summer); !approx(got, 9) {
		t.Fatalf("older film penalty = %v", got)
	}
}
