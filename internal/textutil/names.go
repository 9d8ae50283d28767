package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayOverrides covers codes whose title-cased form reads badly.
var displayOverrides = map[string]string{
	"SCIFI":   "Sci-Fi",
	"TVMOVIE": "TV Movie",
}

// NormalizeCode converts free-form input such as "true crime" or
// "stand-up-comedy" into an upper-case category code.
func NormalizeCode(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToUpper(value) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// DisplayName derives a human-readable name from a category code.
func DisplayName(code string) string {
	code = NormalizeCode(code)
	if name, ok := displayOverrides[code]; ok {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(code, "_", " "))
}

// Truncate shortens s to at most width runes, marking the cut with "…".
func Truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}
