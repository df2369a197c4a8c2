// Package exectask provides task identity, status tracking, and one-shot
// result delivery for tasks moving through a command pool.
package exectask

import "sync/atomic"

// IDGenerator produces monotonically increasing 64-bit task identifiers.
// The zero value is ready to use; NewIDGenerator returns a new one.
type IDGenerator struct {
	counter atomic.Uint64
}

// NewIDGenerator creates a generator whose first call to Next returns 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next unique task ID. Safe for concurrent use.
func (g *IDGenerator) Next() uint64 {
	return g.counter.Add(1)
}
