package testsupport

import (
	"testing"
	"time"

	"marquee/internal/config"
	"marquee/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.OpenConfig(cfg, opts...)
	if err != nil {
		t.Fatalf("store.OpenConfig: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// Clock is a manually advanced time source.
type Clock struct {
	now time.Time
}

// NewClock starts a clock at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current clock time.
func (c *Clock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
