package ranking

import (
	"slices"

	"marquee/internal/catalog"
	"marquee/internal/rotation"
)

// ApplyPersonality layers category-specific modifiers on score. A nil
// personality leaves the score untouched.
func ApplyPersonality(score float64, item catalog.CandidateItem, p *catalog.Personality, day rotation.DayContext) float64 {
	if p == nil {
		return score
	}
	year, ok := item.ReleaseYear()
	if !ok {
		year = day.Year
	}
	age := day.Year - year

	if p.RecentYearBonus > 0 && age <= 2 {
		score *= 1 + p.RecentYearBonus
	}
	if p.HighPopularityBonus > 0 && item.Popularity > 100 {
		score *= 1 + p.HighPopularityBonus
	}
	if p.CultBonus > 0 && item.Popularity < 30 && item.Rating >= 6.5 {
		score *= 1 + p.CultBonus
	}
	if p.AudienceValidationWeight > 0 {
		score *= 1 + voteConfidence(item.VoteCount)*0.1*(p.AudienceValidationWeight-1)
	}
	if p.OlderFilmPenalty > 0 && age > 20 {
		score *= 1 - p.OlderFilmPenalty
	}
	if p.CriticalAcclaimWeight > 0 && item.Rating >= 7.5 {
		score *= p.CriticalAcclaimWeight
	}
	if p.RecencyWeight > 0 && age <= 2 {
		score *= p.RecencyWeight
	}
	if p.SeasonalBonus > 0 && slices.Contains(p.SeasonalMonths, day.Month) {
		score *= 1 + p.SeasonalBonus
	}
	if p.AwardSeasonBonus > 0 && slices.Contains(p.AwardSeasonMonths, day.Month) && item.Rating >= 7.5 {
		score *= 1 + p.AwardSeasonBonus
	}
	for _, era := range p.Eras {
		if year >= era.From && year <= era.To {
			score *= 1 + era.Bonus
		}
	}
	if p.SweetSpot != nil && item.Rating >= p.SweetSpot.Min && item.Rating <= p.SweetSpot.Max {
		score *= 1 + p.SweetSpot.Bonus
	}
	return score
}
