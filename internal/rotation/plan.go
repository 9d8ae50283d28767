package rotation

import "time"

// Plan describes the upstream discover query for a strategy.
type Plan struct {
	SortBy          string
	MinVotes        int64
	MinRating       float64
	ReleaseDateGTE  string
	ReleaseDateLTE  string
	Pages           []int
	StrategyApplied Strategy
}

// Plan returns the discover parameters matching the day's strategy.
func (d DayContext) Plan() Plan {
	plan := Plan{Pages: d.Pages(), StrategyApplied: d.Strategy}
	switch d.Strategy {
	case AudienceFavorites:
		plan.SortBy = "vote_count.desc"
	case RisingStars:
		plan.SortBy = "popularity.desc"
		plan.ReleaseDateGTE = yearStart(d.Year - 2)
	case CriticalDarlings:
		plan.SortBy = "vote_average.desc"
		plan.MinVotes = 500
	case HiddenGems:
		plan.SortBy = "vote_average.desc"
		plan.MinVotes = 100
		plan.MinRating = 7
	case Blockbusters:
		plan.SortBy = "revenue.desc"
	case FreshReleases:
		plan.SortBy = "primary_release_date.desc"
		plan.ReleaseDateGTE = d.Date.AddDate(-1, 0, 0).Format(time.DateOnly)
		plan.ReleaseDateLTE = d.ISODate()
		plan.MinVotes = 50
	case TimelessClassics:
		plan.SortBy = "vote_count.desc"
		plan.ReleaseDateLTE = yearEnd(d.Year - 10)
	default:
		plan.SortBy = "popularity.desc"
	}
	return plan
}

func yearStart(year int) string {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

func yearEnd(year int) string {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}
