// Package metrics records per-run gauges and writes them in the
// node_exporter textfile format, so a cron-driven update can be scraped
// without running a server.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marquee"

// Run holds the gauges for a single update.
type Run struct {
	registry *prometheus.Registry

	LastRun       prometheus.Gauge
	Duration      prometheus.Gauge
	Success       prometheus.Gauge
	APIRequests   prometheus.Gauge
	FetchFailures prometheus.Gauge
	EnrichFailed  prometheus.Gauge
	Items         *prometheus.GaugeVec
	Deficit       *prometheus.GaugeVec
	FreshRatio    *prometheus.GaugeVec
	Unresolved    *prometheus.GaugeVec
}

// NewRun registers a fresh set of gauges on a private registry.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Run{
		registry: reg,
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last update finished.",
		}),
		Duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last update.",
		}),
		Success: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last update persisted a catalog, else 0.",
		}),
		APIRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tmdb_requests",
			Help:      "TMDB HTTP requests issued by the last update.",
		}),
		FetchFailures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_failures",
			Help:      "Discover pages that failed during the last update.",
		}),
		EnrichFailed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrich_failures",
			Help:      "Detail lookups that failed during the last update.",
		}),
		Items: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_items",
			Help:      "Published items per category and source.",
		}, []string{"category", "source"}),
		Deficit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_deficit",
			Help:      "Slots left unfilled per category.",
		}, []string{"category"}),
		FreshRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_fresh_ratio",
			Help:      "Share of each list drawn from this run's candidates.",
		}, []string{"category"}),
		Unresolved: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_unresolved_cached",
			Help:      "Cached items dropped for lacking a resolvable identity.",
		}, []string{"category"}),
	}
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// Finish stamps completion time and outcome.
func (r *Run) Finish(start, end time.Time, ok bool) {
	r.LastRun.Set(float64(end.Unix()))
	r.Duration.Set(end.Sub(start).Seconds())
	if ok {
		r.Success.Set(1)
	} else {
		r.Success.Set(0)
	}
}

// ObserveCategory records the final shape of one list.
func (r *Run) ObserveCategory(code string, sources map[string]int, deficit, unresolved int, freshRatio float64) {
	for source, n := range sources {
		r.Items.WithLabelValues(code, source).Set(float64(n))
	}
	r.Deficit.WithLabelValues(code).Set(float64(deficit))
	r.Unresolved.WithLabelValues(code).Set(float64(unresolved))
	r.FreshRatio.WithLabelValues(code).Set(freshRatio)
}

// WriteTextfile writes the gauges to path. An empty path is a no-op.
func (r *Run) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if !strings.HasSuffix(path, ".prom") {
		return errors.New("metrics file must end in .prom")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
