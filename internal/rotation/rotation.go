// Package rotation derives the per-day ranking strategy and fetch schedule
// from the calendar date. It holds no state.
package rotation

import (
	"fmt"
	"time"
)

// Strategy names the ranking emphasis active for one day.
type Strategy string

const (
	AudienceFavorites Strategy = "AUDIENCE_FAVORITES"
	RisingStars       Strategy = "RISING_STARS"
	CriticalDarlings  Strategy = "CRITICAL_DARLINGS"
	HiddenGems        Strategy = "HIDDEN_GEMS"
	Blockbusters      Strategy = "BLOCKBUSTERS"
	FreshReleases     Strategy = "FRESH_RELEASES"
	TimelessClassics  Strategy = "TIMELESS_CLASSICS"
)

// weekdayStrategies is indexed by time.Weekday (Sunday = 0).
var weekdayStrategies = [7]Strategy{
	AudienceFavorites,
	RisingStars,
	CriticalDarlings,
	HiddenGems,
	Blockbusters,
	FreshReleases,
	TimelessClassics,
}

// Strategies lists every strategy in weekday order.
func Strategies() []Strategy {
	out := make([]Strategy, len(weekdayStrategies))
	copy(out, weekdayStrategies[:])
	return out
}

var pageSchedule = [4][]int{
	{1, 2},
	{2, 3},
	{3, 4},
	{1, 5},
}

// DayContext is computed once per run and passed to every scoring call.
type DayContext struct {
	Date      time.Time
	Strategy  Strategy
	WeekIndex int
	Month     int
	Year      int
}

// ForDate builds the context for the calendar day containing t (UTC).
func ForDate(t time.Time) DayContext {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return DayContext{
		Date:      day,
		Strategy:  weekdayStrategies[int(day.Weekday())],
		WeekIndex: WeekIndex(day.Day()),
		Month:     int(day.Month()),
		Year:      day.Year(),
	}
}

// Parse builds the context for a YYYY-MM-DD date.
func Parse(value string) (DayContext, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return DayContext{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return ForDate(t), nil
}

// WeekIndex maps a day of month onto the four-slot rotation. Days 29-31
// wrap back to slot 0.
func WeekIndex(dayOfMonth int) int {
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	return ((dayOfMonth - 1) / 7) % 4
}

// ISODate renders the run date as YYYY-MM-DD.
func (d DayContext) ISODate() string {
	return d.Date.Format(time.DateOnly)
}

// Pages returns the upstream result pages to pull for this run.
func (d DayContext) Pages() []int {
	idx := d.WeekIndex
	if idx < 0 || idx >= len(pageSchedule) {
		idx = 0
	}
	out := make([]int, len(pageSchedule[idx]))
	copy(out, pageSchedule[idx])
	return out
}
