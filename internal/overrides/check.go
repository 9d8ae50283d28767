package overrides

import (
	"fmt"
	"sort"
)

// Problem is one issue found by Check.
type Problem struct {
	MovieID int64
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("movie %d: %s", p.MovieID, p.Message)
}

// Check reports entries that target unknown categories and ids assigned to
// more than one category. known may be nil to skip the category check.
func Check(entries []Entry, known map[string]struct{}) []Problem {
	var problems []Problem
	codes := make(map[int64]string, len(entries))
	for _, e := range entries {
		if known != nil {
			if _, ok := known[e.Code]; !ok {
				problems = append(problems, Problem{MovieID: e.MovieID, Message: fmt.Sprintf("unknown category %s", e.Code)})
			}
		}
		if prev, ok := codes[e.MovieID]; ok && prev != e.Code {
			problems = append(problems, Problem{MovieID: e.MovieID, Message: fmt.Sprintf("assigned to both %s and %s; %s wins", prev, e.Code, e.Code)})
		}
		codes[e.MovieID] = e.Code
	}
	sort.SliceStable(problems, func(i, j int) bool { return problems[i].MovieID < problems[j].MovieID })
	return problems
}
