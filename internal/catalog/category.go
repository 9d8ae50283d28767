package catalog

// Thresholds are the minimum metrics an item needs to enter a category.
type Thresholds struct {
	MinVotes      int64   `toml:"min_votes" json:"minVotes"`
	MinRating     float64 `toml:"min_rating" json:"minRating"`
	MinPopularity float64 `toml:"min_popularity" json:"minPopularity"`
}

// Allows reports whether the metrics clear every threshold.
func (t Thresholds) Allows(item CandidateItem) bool {
	return item.VoteCount >= t.MinVotes &&
		item.Rating >= t.MinRating &&
		item.Popularity >= t.MinPopularity
}

// Era rewards releases whose year falls inside [From, To].
type Era struct {
	From  int     `toml:"from" json:"from"`
	To    int     `toml:"to" json:"to"`
	Bonus float64 `toml:"bonus" json:"bonus"`
}

// RatingRange rewards ratings inside [Min, Max].
type RatingRange struct {
	Min   float64 `toml:"min" json:"min"`
	Max   float64 `toml:"max" json:"max"`
	Bonus float64 `toml:"bonus" json:"bonus"`
}

// Personality holds the category-specific score modifiers. Zero values
// disable the corresponding modifier.
type Personality struct {
	RecentYearBonus          float64      `toml:"recent_year_bonus" json:"recentYearBonus,omitempty"`
	HighPopularityBonus      float64      `toml:"high_popularity_bonus" json:"highPopularityBonus,omitempty"`
	CultBonus                float64      `toml:"cult_bonus" json:"cultBonus,omitempty"`
	SeasonalMonths           []int        `toml:"seasonal_months" json:"seasonalMonths,omitempty"`
	SeasonalBonus            float64      `toml:"seasonal_bonus" json:"seasonalBonus,omitempty"`
	AwardSeasonMonths        []int        `toml:"award_season_months" json:"awardSeasonMonths,omitempty"`
	AwardSeasonBonus         float64      `toml:"award_season_bonus" json:"awardSeasonBonus,omitempty"`
	CriticalAcclaimWeight    float64      `toml:"critical_acclaim_weight" json:"criticalAcclaimWeight,omitempty"`
	AudienceValidationWeight float64      `toml:"audience_validation_weight" json:"audienceValidationWeight,omitempty"`
	OlderFilmPenalty         float64      `toml:"older_film_penalty" json:"olderFilmPenalty,omitempty"`
	RecencyWeight            float64      `toml:"recency_weight" json:"recencyWeight,omitempty"`
	Eras                     []Era        `toml:"eras" json:"eras,omitempty"`
	SweetSpot                *RatingRange `toml:"sweet_spot" json:"sweetSpot,omitempty"`
}

// CategorySpec is the static definition of one output bucket.
type CategorySpec struct {
	Code        string
	Name        string
	TMDBGenreID int
	Capacity    int
	Thresholds  *Thresholds
	Personality *Personality
	// Relaxed and Minimal override the global backfill thresholds.
	Relaxed *Thresholds
	Minimal *Thresholds
}

// Custom reports whether the category has no upstream genre and is filled
// only through manual assignments.
func (s CategorySpec) Custom() bool {
	return s.TMDBGenreID == 0
}
