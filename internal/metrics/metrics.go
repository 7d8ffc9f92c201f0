// Package metrics exposes Prometheus counters for the gesture pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_samples_total",
		Help: "Feature samples fed to a detector, by modality.",
	}, []string{"modality"})

	gesturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_gestures_total",
		Help: "Actions emitted by a detector, by modality and action.",
	}, []string{"modality", "action"})

	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_dispatch_total",
		Help: "Dispatch attempts by action and result.",
	}, []string{"action", "result"})

	dispatchLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mudra_dispatch_latency_ms",
		Help:    "Time from acceptance to completed injection.",
		Buckets: prometheus.ExponentialBuckets(10, 1.6, 10),
	})

	sessionResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_session_resets_total",
		Help: "Detector state resets caused by interrupted sessions.",
	}, []string{"modality"})
)

// Sample counts one sample for modality.
func Sample(modality string) {
	samplesTotal.WithLabelValues(modality).Inc()
}

// Gesture counts one detector emission.
func Gesture(modality, action string) {
	gesturesTotal.WithLabelValues(modality, action).Inc()
}

// Dispatch counts one dispatch result. Latency is only observed for
// performed actions.
func Dispatch(action, result string, latency time.Duration) {
	dispatchTotal.WithLabelValues(action, result).Inc()
	if latency > 0 {
		dispatchLatencyMS.Observe(float64(latency) / float64(time.Millisecond))
	}
}

// SessionReset counts one interrupted session.
func SessionReset(modality string) {
	sessionResets.WithLabelValues(modality).Inc()
}
