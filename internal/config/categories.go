package config

import "marquee/internal/catalog"

func thresholds(votes int64, rating, popularity float64) *catalog.Thresholds {
	return &catalog.Thresholds{MinVotes: votes, MinRating: rating, MinPopularity: popularity}
}

// defaultCategories returns the built-in category table: the upstream movie
// genres followed by curated categories that are filled only through manual
// classification.
func defaultCategories() []Category {
	return []Category{
		{Code: "ACTION", TMDBGenreID: 28, Personality: &catalog.Personality{
			RecentYearBonus:     0.15,
			HighPopularityBonus: 0.1,
			SeasonalMonths:      []int{6, 7, 8},
			SeasonalBonus:       0.1,
		}},
		{Code: "ADVENTURE", TMDBGenreID: 12},
		{Code: "ANIMATION", TMDBGenreID: 16},
		{Code: "COMEDY", TMDBGenreID: 35, Personality: &catalog.Personality{
			AudienceValidationWeight: 1.3,
			OlderFilmPenalty:         0.1,
		}},
		{Code: "CRIME", TMDBGenreID: 80, Personality: &catalog.Personality{
			Eras: []catalog.Era{{From: 1990, To: 2010, Bonus: 0.1}},
		}},
		{Code: "DOCUMENTARY", TMDBGenreID: 99, Thresholds: thresholds(50, 5.5, 1), Personality: &catalog.Personality{
			RecencyWeight: 1.2,
		}},
		{Code: "DRAMA", TMDBGenreID: 18, Personality: &catalog.Personality{
			AwardSeasonMonths:     []int{1, 2, 3},
			AwardSeasonBonus:      0.15,
			CriticalAcclaimWeight: 1.2,
		}},
		{Code: "FAMILY", TMDBGenreID: 10751, Personality: &catalog.Personality{
			SeasonalMonths: []int{11, 12},
			SeasonalBonus:  0.15,
		}},
		{Code: "FANTASY", TMDBGenreID: 14},
		{Code: "HISTORY", TMDBGenreID: 36, Personality: &catalog.Personality{
			AwardSeasonMonths: []int{1, 2, 3},
			AwardSeasonBonus:  0.1,
		}},
		{Code: "HORROR", TMDBGenreID: 27, Thresholds: thresholds(100, 5.0, 2), Personality: &catalog.Personality{
			CultBonus:      0.1,
			SeasonalMonths: []int{10},
			SeasonalBonus:  0.25,
		}},
		{Code: "MUSIC", TMDBGenreID: 10402},
		{Code: "MYSTERY", TMDBGenreID: 9648},
		{Code: "ROMANCE", TMDBGenreID: 10749, Personality: &catalog.Personality{
			SeasonalMonths: []int{2, 12},
			SeasonalBonus:  0.15,
		}},
		{Code: "SCIFI", TMDBGenreID: 878},
		{Code: "TVMOVIE", TMDBGenreID: 10770, Thresholds: thresholds(50, 5.5, 2)},
		{Code: "THRILLER", TMDBGenreID: 53, Personality: &catalog.Personality{
			SweetSpot: &catalog.RatingRange{Min: 7.0, Max: 8.5, Bonus: 0.1},
		}},
		{Code: "WAR", TMDBGenreID: 10752},
		{Code: "WESTERN", TMDBGenreID: 37, Personality: &catalog.Personality{
			Eras: []catalog.Era{{From: 1950, To: 1980, Bonus: 0.15}},
		}},
		{Code: "SUPERHEROES"},
		{Code: "PARODY"},
		{Code: "ANIMATION_KIDS"},
		{Code: "ANIMATION_ADULT"},
		{Code: "SEASONAL"},
		{Code: "SPORTS"},
		{Code: "CARS"},
		{Code: "TRUE_CRIME"},
		{Code: "STAND_UP_COMEDY"},
		{Code: "NATURE"},
		{Code: "MARTIAL_ARTS"},
		{Code: "DISASTER"},
		{Code: "ACTION_CLASSIC"},
	}
}
