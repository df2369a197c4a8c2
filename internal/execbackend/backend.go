package execbackend

import (
	"context"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
)

// Backend is the polymorphic "execute one command" contract implemented by
// every execution strategy and by custom executors supplied to a pool's
// start-with-executor entry point. Implementations must be safe for
// concurrent use by multiple goroutines.
type Backend interface {
	Execute(ctx context.Context, d command.Descriptor) (execresult.Result, error)
}
