package execpool

import (
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
	"github.com/cmdpool-go/cmdpool/internal/execretry"
)

// SubmitWithRetry submits d and, if it fails, resubmits it up to maxAttempts
// times with a jittered exponential backoff between attempts (see
// execretry.RetryPolicy). It returns the first successful result, or the
// last failure once maxAttempts is exhausted. maxAttempts <= 0 means retry
// forever. This is a caller-driven convenience; the dispatch loop itself
// never retries a failed task on its own.
func (p *Pool) SubmitWithRetry(d command.Descriptor, maxAttempts int, cfg execretry.Config) (execresult.Result, error) {
	var policy *execretry.RetryPolicy

	for {
		handle, err := p.Submit(d)
		if err != nil {
			return execresult.Result{}, err
		}
		if policy == nil {
			policy = execretry.NewRetryPolicy(handle.ID(), p.retrySeed, cfg)
		}
		result, err := handle.Wait()
		if err == nil {
			return result, nil
		}
		if policy.MaxAttemptsExceeded(maxAttempts) {
			return result, err
		}
		time.Sleep(policy.Next())
	}
}

// SubmitWithRetry is Pool.SubmitWithRetry's lock-free-queue counterpart.
// LockFreePool.Submit never fails, so unlike Pool's version this only ever
// loops on a failed execution, not on a rejected enqueue.
func (p *LockFreePool) SubmitWithRetry(d command.Descriptor, maxAttempts int, cfg execretry.Config) (execresult.Result, error) {
	var policy *execretry.RetryPolicy

	for {
		handle := p.Submit(d)
		if policy == nil {
			policy = execretry.NewRetryPolicy(handle.ID(), p.retrySeed, cfg)
		}
		result, err := handle.Wait()
		if err == nil {
			return result, nil
		}
		if policy.MaxAttemptsExceeded(maxAttempts) {
			return result, err
		}
		time.Sleep(policy.Next())
	}
}
