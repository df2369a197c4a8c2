// Package execmetrics exposes Prometheus metrics for a running command
// pool: queue depth, in-flight subprocess count, and per-outcome dispatch
// counters and latencies.
package execmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cmdpool_queue_depth",
		Help: "Current number of descriptors waiting in the pool queue",
	})

	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cmdpool_inflight_subprocesses",
		Help: "Currently running subprocesses across all workers",
	})

	dispatchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cmdpool_dispatched_total",
		Help: "Total descriptors handed to a backend",
	})

	completedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cmdpool_completed_total",
		Help: "Total executions that returned without error",
	})

	failedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmdpool_failed_total",
			Help: "Total executions that returned an error, labeled by error kind",
		},
		[]string{"kind"},
	)

	executionSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cmdpool_execution_duration_seconds",
		Help:    "Wall-clock time spent inside Backend.Execute",
		Buckets: prometheus.DefBuckets,
	})
)

// Collector wraps the package's Prometheus collectors so pool code has a
// small, testable surface instead of touching the global registry directly.
type Collector struct{}

// NewCollector registers this package's metrics with registry and returns a
// Collector for reporting pool events.
func NewCollector(registry prometheus.Registerer) *Collector {
	registry.MustRegister(queueDepth, inFlight, dispatchedTotal, completedTotal, failedTotal, executionSeconds)
	return &Collector{}
}

// SetQueueDepth reports the pool's current queue length.
func (c *Collector) SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

// InFlightStarted increments the in-flight subprocess gauge.
func (c *Collector) InFlightStarted() { inFlight.Inc() }

// InFlightFinished decrements the in-flight subprocess gauge.
func (c *Collector) InFlightFinished() { inFlight.Dec() }

// RecordDispatch records that a descriptor was handed to a backend.
func (c *Collector) RecordDispatch() { dispatchedTotal.Inc() }

// RecordOutcome records the result of one Backend.Execute call: success
// increments the completed counter; failure increments the failed counter
// under the given error kind label. duration is always recorded.
func (c *Collector) RecordOutcome(duration time.Duration, errKind string) {
	executionSeconds.Observe(duration.Seconds())
	if errKind == "" {
		completedTotal.Inc()
		return
	}
	failedTotal.WithLabelValues(errKind).Inc()
}
