package execbackend

import "fmt"

// Build constructs the Backend selected by cfg.Mode. ModeProcessPool spawns
// cfg.Workers resident workers using DefaultSpawn; callers that need a
// custom spawn strategy should construct a ProcessPoolBackend directly.
func Build(cfg Config) (Backend, error) {
	limit := 0
	if cfg.ConcurrencyLimit != nil {
		limit = *cfg.ConcurrencyLimit
	}

	switch cfg.Mode {
	case ModeProcess:
		return NewProcessBackend(limit), nil
	case ModeThread:
		return NewThreadBackend(cfg.Workers, limit), nil
	case ModeProcessPool:
		return NewProcessPoolBackend(cfg.Workers, limit, nil)
	default:
		return nil, fmt.Errorf("execbackend: unknown mode %q", cfg.Mode)
	}
}
