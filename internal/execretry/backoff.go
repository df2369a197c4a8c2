// Package execretry adapts jittered exponential backoff to caller-driven
// resubmission of failed tasks. Nothing in execpool's dispatch loop calls
// this automatically: pool workers never retry a failed task on their own,
// so a RetryPolicy only ever fires when a caller chooses to requeue.
package execretry

import (
	"math"
	"math/rand"
	"time"
)

// Config holds the tunables for exponential backoff.
type Config struct {
	Initial    time.Duration // first delay (default: 250ms)
	Max        time.Duration // delay ceiling (default: 5s)
	Multiplier float64       // growth factor per attempt (default: 1.7)
	JitterPct  float64       // jitter as a fraction of delay (default: 0.4 = +/-20%)
}

// DefaultConfig returns sensible backoff defaults.
func DefaultConfig() Config {
	return Config{
		Initial:    250 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 1.7,
		JitterPct:  0.4,
	}
}

// RetryPolicy computes successive backoff delays for one task's retry
// history. Each instance is tied to a task ID and a seed for deterministic
// jitter, so two policies built from the same task ID and seed replay the
// same delay sequence.
type RetryPolicy struct {
	cfg      Config
	attempts int
	rng      *rand.Rand
}

// NewRetryPolicy creates a policy for taskID, seeded so its jitter sequence
// is reproducible across runs given the same seed.
func NewRetryPolicy(taskID uint64, seed int64, cfg Config) *RetryPolicy {
	return &RetryPolicy{
		cfg: cfg,
		rng: rand.New(rand.NewSource(int64(taskID) ^ seed)),
	}
}

// Next returns the delay to wait before the next retry attempt and advances
// the attempt counter.
func (p *RetryPolicy) Next() time.Duration {
	delay := p.Calculate()
	p.attempts++
	return delay
}

// Calculate returns the current delay without advancing the attempt
// counter.
func (p *RetryPolicy) Calculate() time.Duration {
	delay := float64(p.cfg.Initial) * math.Pow(p.cfg.Multiplier, float64(p.attempts))
	if delay > float64(p.cfg.Max) {
		delay = float64(p.cfg.Max)
	}
	if p.cfg.JitterPct > 0 {
		jitterRange := delay * p.cfg.JitterPct
		delay += jitterRange*p.rng.Float64() - jitterRange/2
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Reset zeroes the attempt counter, for use after a retry finally succeeds.
func (p *RetryPolicy) Reset() { p.attempts = 0 }

// Attempts reports how many retries this policy has issued so far.
func (p *RetryPolicy) Attempts() int { return p.attempts }

// MaxAttemptsExceeded reports whether attempts has reached max. A max of 0
// means unlimited retries.
func (p *RetryPolicy) MaxAttemptsExceeded(max int) bool {
	return max > 0 && p.attempts >= max
}
