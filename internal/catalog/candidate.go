package catalog

import (
	"strconv"
	"strings"
)

// CandidateItem is a raw content record fetched from the source. Identity is
// the source's numeric id.
type CandidateItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	Popularity   float64 `json:"popularity"`
	Rating       float64 `json:"rating"`
	VoteCount    int64   `json:"voteCount"`
	ReleaseDate  string  `json:"releaseDate,omitempty"`
	PosterPath   string  `json:"posterPath,omitempty"`
	BackdropPath string  `json:"backdropPath,omitempty"`
	GenreIDs     []int   `json:"genreIds,omitempty"`
}

// ReleaseYear parses the leading year of ReleaseDate.
func (c CandidateItem) ReleaseYear() (int, bool) {
	return parseYear(c.ReleaseDate)
}

// AgeAt returns the whole-year age of the item relative to year. Items
// without a usable release date are treated as current-year releases.
func (c CandidateItem) AgeAt(year int) int {
	released, ok := c.ReleaseYear()
	if !ok {
		return 0
	}
	return year - released
}

func parseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}
