// Package metrics exposes Prometheus collectors for the lookup service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lookupsTotal         *prometheus.CounterVec
	targetsTotal         *prometheus.CounterVec
	fetchDurationSeconds prometheus.Histogram
	inflightFetches      prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		lookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmabot_lookups_total",
				Help: "Total lookups handled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		targetsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmabot_targets_total",
				Help: "Total fetch targets processed, labeled by result.",
			},
			[]string{"result"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pharmabot_fetch_duration_seconds",
				Help:    "Histogram of per-target fetch+parse latencies.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
			},
		)

		inflightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pharmabot_inflight_fetches",
				Help: "Number of fetch units currently holding a slot.",
			},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLookup records one completed lookup.
func ObserveLookup(outcome string) {
	Init()
	lookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTarget records one finished fetch unit.
func ObserveTarget(result string, duration time.Duration) {
	Init()
	targetsTotal.WithLabelValues(result).Inc()
	fetchDurationSeconds.Observe(duration.Seconds())
}

// IncInflight increments the in-flight fetch gauge.
func IncInflight() {
	Init()
	inflightFetches.Inc()
}

// DecInflight decrements the in-flight fetch gauge.
func DecInflight() {
	Init()
	inflightFetches.Dec()
}
