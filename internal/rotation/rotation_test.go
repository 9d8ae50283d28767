package rotation_test

import (
	"reflect"
	"testing"
	"time"

	"marquee/internal/rotation"
)

func TestForDateStrategyFollowsWeekday(t *testing.T) {
	// 2026-03-01 is a Sunday.
	start := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	want := rotation.Strategies()
	for i := 0; i < 7; i++ {
		day := rotation.ForDate(start.AddDate(0, 0, i))
		if day.Strategy != want[i] {
			t.Fatalf("day %d strategy = %s, want %s", i, day.Strategy, want[i])
		}
	}
}

func TestForDateTruncatesToDay(t *testing.T) {
	a := rotation.ForDate(time.Date(2026, 3, 4, 0, 0, 1, 0, time.UTC))
	b := rotation.ForDate(time.Date(2026, 3, 4, 23, 59, 59, 0, time.UTC))
	if a != b {
		t.Fatalf("expected identical contexts within a day: %+v vs %+v", a, b)
	}
	if a.ISODate() != "2026-03-04" || a.Month != 3 || a.Year != 2026 {
		t.Fatalf("unexpected context %+v", a)
	}
}

func TestWeekIndex(t *testing.T) {
	cases := map[int]int{1: 0, 7: 0, 8: 1, 14: 1, 15: 2, 21: 2, 22: 3, 28: 3, 29: 0, 31: 0}
	for dom, want := range cases {
		if got := rotation.WeekIndex(dom); got != want {
			t.Fatalf("WeekIndex(%d) = %d, want %d", dom, got, want)
		}
	}
}

func TestPagesByWeekIndex(t *testing.T) {
	cases := map[int][]int{3: {1, 2}, 10: {2, 3}, 17: {3, 4}, 24: {1, 5}, 30: {1, 2}}
	for dom, want := range cases {
		day := rotation.ForDate(time.Date(2026, 1, dom, 0, 0, 0, 0, time.UTC))
		if got := day.Pages(); !reflect.DeepEqual(got, want) {
			t.Fatalf("day %d pages = %v, want %v", dom, got, want)
		}
	}
}

func TestPlanFreshReleasesWindow(t *testing.T) {
	// 2026-03-06 is a Friday.
	day := rotation.ForDate(time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	if day.Strategy != rotation.FreshReleases {
		t.Fatalf("strategy = %s", day.Strategy)
	}
	plan := day.Plan()
	if plan.SortBy != "primary_release_date.desc" {
		t.Fatalf("sort = %s", plan.SortBy)
	}
	if plan.ReleaseDateGTE != "2025-03-06" || plan.ReleaseDateLTE != "2026-03-06" {
		t.Fatalf("window = %s..%s", plan.ReleaseDateGTE, plan.ReleaseDateLTE)
	}
}

func TestPlanTimelessClassicsCutoff(t *testing.T) {
	// 2026-03-07 is a Saturday.
	plan := rotation.ForDate(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)).Plan()
	if plan.ReleaseDateLTE != "2016-12-31" || plan.ReleaseDateGTE != "" {
		t.Fatalf("unexpected classics window %+v", plan)
	}
}

func TestParse(t *testing.T) {
	if _, err := rotation.Parse("03/01/2026"); err == nil {
		t.Fatal("expected parse error")
	}
	day, err := rotation.Parse("2026-03-03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if day.Strategy != rotation.CriticalDarlings {
		t.Fatalf("strategy = %s", day.Strategy)
	}
}
