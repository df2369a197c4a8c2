package execpool

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execbackend"
	"github.com/cmdpool-go/cmdpool/internal/execmetrics"
	"github.com/cmdpool-go/cmdpool/internal/execstats"
	"github.com/cmdpool-go/cmdpool/internal/exectask"
)

// LockFreePool is the same dispatch-loop contract as Pool, but backed by an
// always-unbounded multi-producer/multi-consumer lock-free queue instead of
// a mutex-guarded deque. There is no bounded variant and no try-enqueue
// distinct from enqueue, since neither can ever block or fail on a queue
// that never rejects a push.
type LockFreePool struct {
	queue *lockFreeQueue

	backend execbackend.Backend
	running atomic.Bool
	stopped atomic.Bool
	wg      sync.WaitGroup

	Tracker *exectask.Tracker
	ids     *exectask.IDGenerator

	// Collector and Digest mirror Pool's fields: optional metrics/latency
	// sinks the dispatch loop feeds as it runs.
	Collector *execmetrics.Collector
	Digest    *execstats.LatencyDigest

	// Logger mirrors Pool.Logger. Defaults to slog.Default() when nil.
	Logger *slog.Logger

	// retrySeed mirrors Pool.retrySeed for SubmitWithRetry's jitter.
	retrySeed int64
}

// NewLockFree creates an unbounded lock-free pool over backend.
func NewLockFree(backend execbackend.Backend) *LockFreePool {
	return &LockFreePool{
		queue:     newLockFreeQueue(),
		backend:   backend,
		ids:       exectask.NewIDGenerator(),
		retrySeed: time.Now().UnixNano(),
	}
}

// WithTracker attaches a status tracker, matching Pool.WithTracker.
func (p *LockFreePool) WithTracker(t *exectask.Tracker) *LockFreePool {
	p.Tracker = t
	return p
}

// WithCollector attaches a metrics collector, matching Pool.WithCollector.
func (p *LockFreePool) WithCollector(c *execmetrics.Collector) *LockFreePool {
	p.Collector = c
	return p
}

// WithDigest attaches a latency digest, matching Pool.WithDigest.
func (p *LockFreePool) WithDigest(d *execstats.LatencyDigest) *LockFreePool {
	p.Digest = d
	return p
}

// WithLogger attaches a logger, matching Pool.WithLogger.
func (p *LockFreePool) WithLogger(logger *slog.Logger) *LockFreePool {
	p.Logger = logger
	return p
}

func (p *LockFreePool) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Enqueue pushes d. It never blocks and never fails; it exists to mirror
// Pool's naming even though this queue has no queue-full concept.
func (p *LockFreePool) Enqueue(d command.Descriptor) {
	p.queue.push(queueItem{d: d})
	p.reportQueueDepth()
}

// Submit is Enqueue plus task-lifecycle plumbing, matching Pool.Submit.
func (p *LockFreePool) Submit(d command.Descriptor) *exectask.Handle {
	id := p.ids.Next()
	if p.Tracker != nil {
		p.Tracker.Register(id)
	}
	handle, sender := exectask.NewHandle(id)
	p.queue.push(queueItem{d: d, id: id, hasTask: true, sender: sender})
	p.reportQueueDepth()
	return handle
}

// Dequeue pops the head descriptor, or ok=false if the queue was observed
// empty. Under concurrent pushes this can race with a push that is
// in-flight; it never blocks and never deadlocks.
func (p *LockFreePool) Dequeue() (command.Descriptor, bool) {
	item, ok := p.queue.pop()
	if !ok {
		return command.Descriptor{}, false
	}
	p.reportQueueDepth()
	return item.d, true
}

// Len returns an approximate queue length; it may be transiently stale
// under contention but never blocks.
func (p *LockFreePool) Len() int { return p.queue.approxLen() }

// reportQueueDepth pushes the current approximate queue length to
// Collector, if set.
func (p *LockFreePool) reportQueueDepth() {
	if p.Collector != nil {
		p.Collector.SetQueueDepth(p.queue.approxLen())
	}
}

// IsEmpty reports the same approximate emptiness as Len.
func (p *LockFreePool) IsEmpty() bool { return p.Len() == 0 }

func (p *LockFreePool) runItem(item queueItem) {
	if item.hasTask && p.Tracker != nil {
		p.Tracker.Update(item.id, exectask.StatusRunning)
	}

	if p.Collector != nil {
		p.Collector.RecordDispatch()
		p.Collector.InFlightStarted()
	}

	start := time.Now()
	result, err := executeViaBackend(p.backend, item.d)
	duration := time.Since(start)

	if p.Collector != nil {
		p.Collector.InFlightFinished()
		p.Collector.RecordOutcome(duration, errKind(err))
	}
	if p.Digest != nil {
		p.Digest.Record(duration)
	}

	if err != nil {
		p.logger().Warn("task_execution_failed", "task_id", item.id, "duration", duration, "error", err)
	}

	if item.hasTask {
		if p.Tracker != nil {
			if err != nil {
				p.Tracker.Update(item.id, exectask.StatusFailed)
			} else {
				p.Tracker.Update(item.id, exectask.StatusCompleted)
			}
		}
		if item.sender != nil {
			item.sender.SendResult(result, err)
		}
	}
}

func (p *LockFreePool) dispatchLoop(pollInterval time.Duration) {
	defer p.wg.Done()
	for !p.stopped.Load() {
		item, ok := p.queue.pop()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		p.reportQueueDepth()
		p.runItem(item)
	}
}

// StartExecutor spawns defaultWorkerCount() (four) dispatch-loop workers,
// matching Pool's executor-start API.
func (p *LockFreePool) StartExecutor(pollInterval time.Duration) {
	p.StartExecutorWithWorkers(pollInterval, defaultWorkerCount())
}

// StartExecutorWithWorkers starts workers dispatch-loop workers.
func (p *LockFreePool) StartExecutorWithWorkers(pollInterval time.Duration, workers int) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.stopped.Store(false)
	if workers <= 0 {
		workers = 1
	}
	p.logger().Info("pool_started", "workers", workers, "poll_interval", pollInterval)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.dispatchLoop(pollInterval)
	}
}

// Stop sets the stop flag, waits for every dispatch-loop worker to notice
// it and exit, then drains whatever is left in the queue, dropping the
// sender of each remaining Submit-created item so no Handle.Wait() call is
// left blocked forever.
func (p *LockFreePool) Stop() {
	p.stopped.Store(true)
	p.wg.Wait()
	p.running.Store(false)

	drained := 0
	for {
		item, ok := p.queue.pop()
		if !ok {
			break
		}
		p.reportQueueDepth()
		drained++
		if item.hasTask && item.sender != nil {
			item.sender.Drop()
		}
	}
	p.logger().Info("pool_stopped", "drained", drained)
}

// IsRunning reports whether at least one worker is active and Stop has not
// been called.
func (p *LockFreePool) IsRunning() bool {
	return p.running.Load() && !p.stopped.Load()
}
