// Package execstats tracks execution-latency distributions for a running
// command pool using a t-digest, a streaming-quantile structure suited to
// rolling percentile metrics.
package execstats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// LatencyDigest accumulates Backend.Execute durations and answers quantile
// queries in O(1) regardless of how many samples have been recorded.
type LatencyDigest struct {
	mu     sync.Mutex
	digest *tdigest.TDigest
	count  int64
}

// NewLatencyDigest creates a digest with a fixed compression factor,
// trading memory for accuracy.
func NewLatencyDigest() *LatencyDigest {
	return &LatencyDigest{digest: tdigest.NewWithCompression(100)}
}

// Record adds one observed execution duration.
func (l *LatencyDigest) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.digest.Add(d.Seconds(), 1)
	l.count++
}

// Quantile returns the estimated value at q (0.0-1.0), in seconds. It
// returns 0 if no samples have been recorded yet.
func (l *LatencyDigest) Quantile(q float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return 0
	}
	return l.digest.Quantile(q)
}

// Count returns how many samples have been recorded.
func (l *LatencyDigest) Count() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Reset discards all samples, starting a fresh digest.
func (l *LatencyDigest) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.digest = tdigest.NewWithCompression(100)
	l.count = 0
}
