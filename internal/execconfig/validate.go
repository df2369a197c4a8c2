package execconfig

import (
	"errors"
	"fmt"
	"runtime"
)

// ValidationError represents a single configuration problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks cfg for internal consistency, returning a joined error
// describing every problem found, or nil if cfg is usable as-is.
func Validate(cfg *Config) error {
	var errs []error

	validModes := map[string]bool{"process": true, "thread": true, "process_pool": true}
	if !validModes[cfg.Mode] {
		errs = append(errs, ValidationError{
			Field:   "mode",
			Message: fmt.Sprintf("must be one of: process, thread, process_pool (got %q)", cfg.Mode),
		})
	}

	if cfg.Workers < 1 {
		errs = append(errs, ValidationError{Field: "workers", Message: "must be at least 1"})
	}

	if cfg.ConcurrencyLimit < 0 {
		errs = append(errs, ValidationError{Field: "concurrency_limit", Message: "must be >= 0 (0 = unbounded)"})
	}

	validQueues := map[string]bool{"mutex": true, "lockfree": true}
	if !validQueues[cfg.QueueImpl] {
		errs = append(errs, ValidationError{
			Field:   "queue_impl",
			Message: fmt.Sprintf("must be 'mutex' or 'lockfree' (got %q)", cfg.QueueImpl),
		})
	}
	if cfg.QueueImpl == "lockfree" && cfg.MaxQueue > 0 {
		errs = append(errs, ValidationError{
			Field:   "max_queue",
			Message: "the lock-free queue is always unbounded; max_queue must be 0",
		})
	}
	if cfg.MaxQueue < 0 {
		errs = append(errs, ValidationError{Field: "max_queue", Message: "must be >= 0"})
	}

	if cfg.PollInterval <= 0 {
		errs = append(errs, ValidationError{Field: "poll_interval", Message: "must be positive"})
	}

	if cfg.DefaultTimeout < 0 {
		errs = append(errs, ValidationError{Field: "default_timeout", Message: "must be >= 0 (0 disables the default)"})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n <= 0 {
		return 4
	}
	return n
}
