package catalog

import (
	"strconv"
	"strings"
)

const tmdbPrefix = "tmdb:"

// TMDBKey formats the prefixed key used for items without an IMDb id.
func TMDBKey(id int64) string {
	return tmdbPrefix + strconv.FormatInt(id, 10)
}

// ResolveIdentity returns the canonical numeric identity of an output item.
// The numeric field wins; otherwise a "tmdb:<n>" key is parsed. Anything
// else cannot be compared with fresh candidates and is unresolvable.
func ResolveIdentity(item OutputItem) (int64, bool) {
	if item.TMDBID > 0 {
		return item.TMDBID, true
	}
	raw := strings.TrimSpace(item.ID)
	if !strings.HasPrefix(raw, tmdbPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, tmdbPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
