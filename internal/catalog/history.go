package catalog

import "time"

// HistoryRun lists the ids published by one run.
type HistoryRun struct {
	Date string  `json:"date"`
	IDs  []int64 `json:"ids"`
}

// RecentHistory is the rolling record of recently shown ids, newest run
// first. It only feeds the soft repeat penalty.
type RecentHistory struct {
	Runs      []HistoryRun `json:"runs"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Set returns the ids as a lookup set.
func (h *RecentHistory) Set() map[int64]struct{} {
	set := make(map[int64]struct{})
	if h == nil {
		return set
	}
	for _, run := range h.Runs {
		for _, id := range run.IDs {
			set[id] = struct{}{}
		}
	}
	return set
}

// Len returns the number of distinct ids held.
func (h *RecentHistory) Len() int {
	return len(h.Set())
}

// Record prepends a run and enforces the run and id bounds. An id already
// present in an older run moves to the new run. When the id bound is
// exceeded the oldest ids are evicted first.
func (h *RecentHistory) Record(date string, ids []int64, maxRuns, capacity int, now time.Time) {
	seen := make(map[int64]struct{}, len(ids))
	fresh := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		fresh = append(fresh, id)
	}

	runs := []HistoryRun{{Date: date, IDs: fresh}}
	for _, run := range h.Runs {
		if run.Date == date {
			continue
		}
		kept := make([]int64, 0, len(run.IDs))
		for _, id := range run.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			runs = append(runs, HistoryRun{Date: run.Date, IDs: kept})
		}
	}
	if maxRuns > 0 && len(runs) > maxRuns {
		runs = runs[:maxRuns]
	}

	if capacity > 0 {
		remaining := capacity
		for i := range runs {
			if remaining <= 0 {
				runs = runs[:i]
				break
			}
			if len(runs[i].IDs) > remaining {
				runs[i].IDs = runs[i].IDs[:remaining]
			}
			remaining -= len(runs[i].IDs)
		}
	}

	h.Runs = runs
	h.UpdatedAt = now
}
