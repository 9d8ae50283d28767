package tmdb

import (
	"sort"
	"strings"
)

// Movie is a single discover result.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	GenreIDs     []int   `json:"genre_ids"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// DiscoverResponse models the paginated discover payload.
type DiscoverResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// DiscoverQuery selects one page of /discover/movie.
type DiscoverQuery struct {
	GenreID        int
	SortBy         string
	Page           int
	MinVotes       int64
	MinRating      float64
	ReleaseDateGTE string
	ReleaseDateLTE string
}

// Genre is a named TMDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is one billed performer.
type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CrewMember is one credited crew role.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits groups the appended credits response.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Details is the /movie/{id} payload with credits appended.
type Details struct {
	ID           int64   `json:"id"`
	IMDBID       string  `json:"imdb_id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	Tagline      string  `json:"tagline"`
	Runtime      int     `json:"runtime"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Genres       []Genre `json:"genres"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
	Credits      Credits `json:"credits"`
}

// TopCast returns up to n performer names in billing order.
func (d Details) TopCast(n int) []string {
	cast := append([]CastMember(nil), d.Credits.Cast...)
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
	names := make([]string, 0, n)
	for _, member := range cast {
		if len(names) == n {
			break
		}
		if name := strings.TrimSpace(member.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Director returns the first credited director, if any.
func (d Details) Director() string {
	for _, member := range d.Credits.Crew {
		if member.Job == "Director" {
			return strings.TrimSpace(member.Name)
		}
	}
	return ""
}

// GenreNames lists the genre names in payload order.
func (d Details) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}
