package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for completions.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	aliasResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ccp",
			Subsystem: "forwarder",
			Name:      "alias_resolutions_total",
			Help:      "Model names resolved, by alias class (big, small, passthrough).",
		}, []string{"class"},
	)
	completions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ccp",
			Subsystem: "forwarder",
			Name:      "completions_total",
			Help:      "Completion calls by provider prefix and outcome.",
		}, []string{"provider", "outcome"},
	)
	completionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ccp",
			Subsystem: "forwarder",
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"},
	)
	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ccp",
			Subsystem: "forwarder",
			Name:      "inflight_completions",
			Help:      "Completion calls currently in progress.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{aliasResolutions, completions, completionDuration, inflight}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor serves metrics from a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Below are lightweight helpers used by the forwarder to record metrics.
// They no-op if Register hasn't been called.

func IncAliasResolution(class string) {
	if regOK.Load() {
		aliasResolutions.WithLabelValues(class).Inc()
	}
}

// ObserveCompletion records one finished completion call.
func ObserveCompletion(provider, outcome string, d time.Duration) {
	if regOK.Load() {
		completions.WithLabelValues(provider, outcome).Inc()
		completionDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// TrackInflight increments the in-flight gauge and returns the matching decrement.
func TrackInflight() func() {
	if !regOK.Load() {
		return func() {}
	}
	inflight.Inc()
	return inflight.Dec
}
