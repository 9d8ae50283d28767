package ranking

import (
	"hash/fnv"
	"strconv"
)

// Jitter returns a deterministic fraction in [0, max) derived from the run
// date, category code and item id.
func Jitter(isoDate, code string, id int64, max float64) float64 {
	if max <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(isoDate))
	h.Write([]byte{'|'})
	h.Write([]byte(code))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(id, 10)))
	return float64(h.Sum32()%1000) / 1000 * max
}
