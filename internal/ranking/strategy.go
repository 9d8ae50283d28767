package ranking

import (
	"marquee/internal/catalog"
	"marquee/internal/rotation"
)

// ApplyStrategy adjusts score for the day's strategy using the item's age
// in whole years relative to the run year.
func ApplyStrategy(score float64, item catalog.CandidateItem, day rotation.DayContext) float64 {
	age := item.AgeAt(day.Year)
	switch day.Strategy {
	case rotation.AudienceFavorites:
		score *= 1 + voteConfidence(item.VoteCount)*0.2
	case rotation.RisingStars:
		if age <= 3 && item.Rating >= 6.5 {
			score *= 1.2
		}
	case rotation.CriticalDarlings:
		score *= item.Rating / 8
	case rotation.HiddenGems:
		if item.Popularity < 20 && item.Rating >= 7 {
			score *= 1.25
		} else if item.Popularity > 100 {
			score *= 0.85
		}
	case rotation.Blockbusters:
		if item.Popularity > 100 {
			score *= 1.25
		}
		if item.VoteCount >= 5000 {
			score *= 1.1
		}
	case rotation.FreshReleases:
		if age <= 1 {
			score *= 1.3
		} else if age > 5 {
			score *= 0.7
		}
	case rotation.TimelessClassics:
		if age >= 10 && item.VoteCount >= 1000 {
			score *= 1.3
		}
	}
	return score
}
