package execbackend

import (
	"context"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execproc"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
	"github.com/cmdpool-go/cmdpool/internal/execsem"
)

// ProcessBackend runs every command in its own subprocess via the timed
// executor. When a concurrency limit is configured it gates admission
// through a counting semaphore so the limit holds regardless of how many
// pool workers call Execute concurrently.
type ProcessBackend struct {
	exec *execproc.Executor
	sem  *execsem.Semaphore
}

// NewProcessBackend creates a ProcessBackend. limit of 0 means unbounded
// concurrent subprocesses.
func NewProcessBackend(limit int) *ProcessBackend {
	b := &ProcessBackend{exec: execproc.New()}
	if limit > 0 {
		b.sem = execsem.New(limit)
	}
	return b
}

// Execute optionally acquires a permit, then runs d through the timed
// executor. The permit is always released via a scoped guard, so a timeout
// or execution error never leaks it.
func (b *ProcessBackend) Execute(ctx context.Context, d command.Descriptor) (execresult.Result, error) {
	if b.sem != nil {
		guard := b.sem.AcquireGuard()
		defer guard.Release()
	}
	return b.exec.Execute(ctx, d)
}
