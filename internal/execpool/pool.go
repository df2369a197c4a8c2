// Package execpool implements a mutex-queue command pool and its lock-free
// counterpart: a FIFO of command descriptors drained by a configurable
// number of dispatch-loop workers onto a shared backend.
package execpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execbackend"
	"github.com/cmdpool-go/cmdpool/internal/execerr"
	"github.com/cmdpool-go/cmdpool/internal/execmetrics"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
	"github.com/cmdpool-go/cmdpool/internal/execstats"
	"github.com/cmdpool-go/cmdpool/internal/exectask"
)

// DefaultPollInterval is used by callers that do not care about dispatch
// wake-up latency.
const DefaultPollInterval = 50 * time.Millisecond

// queueItem is what actually flows through the FIFO. The task fields are
// only populated for descriptors submitted via Submit; plain Enqueue calls
// leave hasTask false and the dispatch loop skips status/handle plumbing
// for them entirely.
type queueItem struct {
	d       command.Descriptor
	id      uint64
	hasTask bool
	sender  *exectask.Sender
}

// Pool is a bounded or unbounded FIFO of command descriptors, a shared
// backend, and a stop flag that dispatch-loop workers observe cooperatively
// between dequeues.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []queueItem
	maxSize int // 0 means unbounded
	closed  bool

	backend execbackend.Backend
	running atomic.Bool
	stopped atomic.Bool

	wg sync.WaitGroup

	// Tracker is optional; when set, Submit registers each task before it
	// is queued and the dispatch loop updates its status as it runs. Nil
	// means status tracking is left entirely to the caller.
	Tracker *exectask.Tracker
	ids     *exectask.IDGenerator

	// Collector is optional; when set, the dispatch loop reports queue
	// depth, in-flight count, and per-outcome counters/latency through it.
	Collector *execmetrics.Collector

	// Digest is optional; when set, the dispatch loop records every
	// Backend.Execute duration into it for quantile queries.
	Digest *execstats.LatencyDigest

	// Logger reports dispatch-loop lifecycle and task failures. Defaults to
	// slog.Default() when nil.
	Logger *slog.Logger

	// retrySeed makes SubmitWithRetry's jitter deterministic per task ID
	// while still varying run to run: it is set once at construction and
	// combined with each task's own ID.
	retrySeed int64
}

// New creates an unbounded pool over backend.
func New(backend execbackend.Backend) *Pool {
	p := &Pool{backend: backend, ids: exectask.NewIDGenerator(), retrySeed: time.Now().UnixNano()}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// WithLogger attaches a logger; see the Logger field.
func (p *Pool) WithLogger(logger *slog.Logger) *Pool {
	p.Logger = logger
	return p
}

func (p *Pool) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// WithTracker attaches a status tracker; tasks submitted via Submit register
// with it and have their status kept current as they run.
func (p *Pool) WithTracker(t *exectask.Tracker) *Pool {
	p.Tracker = t
	return p
}

// WithCollector attaches a metrics collector; the dispatch loop reports
// queue depth, in-flight count, and outcomes through it as tasks run.
func (p *Pool) WithCollector(c *execmetrics.Collector) *Pool {
	p.Collector = c
	return p
}

// WithDigest attaches a latency digest; the dispatch loop records every
// Backend.Execute duration into it.
func (p *Pool) WithDigest(d *execstats.LatencyDigest) *Pool {
	p.Digest = d
	return p
}

// NewWithLimit creates a pool whose queue holds at most maxSize descriptors.
// maxSize <= 0 is treated as unbounded.
func NewWithLimit(backend execbackend.Backend, maxSize int) *Pool {
	p := New(backend)
	if maxSize > 0 {
		p.maxSize = maxSize
	}
	return p
}

func (p *Pool) bounded() bool { return p.maxSize > 0 }

// Enqueue inserts d, blocking while the queue is full (bounded pools only)
// until a slot frees or the pool is stopped. Enqueueing after Stop returns
// execerr.QueueClosed.
func (p *Pool) Enqueue(d command.Descriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.bounded() && len(p.queue) >= p.maxSize && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return execerr.QueueClosed
	}
	p.queue = append(p.queue, queueItem{d: d})
	p.cond.Signal()
	p.reportQueueDepthLocked()
	return nil
}

// Submit is Enqueue plus task-lifecycle plumbing: it assigns a task ID,
// registers it as Pending with Tracker (if set), and returns a Handle the
// caller can Wait on for the eventual result. Submit blocks exactly like
// Enqueue on a full bounded queue and returns the same errors.
func (p *Pool) Submit(d command.Descriptor) (*exectask.Handle, error) {
	id := p.ids.Next()
	if p.Tracker != nil {
		p.Tracker.Register(id)
	}
	handle, sender := exectask.NewHandle(id)

	p.mu.Lock()
	for p.bounded() && len(p.queue) >= p.maxSize && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		p.mu.Unlock()
		sender.Drop()
		return nil, execerr.QueueClosed
	}
	p.queue = append(p.queue, queueItem{d: d, id: id, hasTask: true, sender: sender})
	p.cond.Signal()
	p.reportQueueDepthLocked()
	p.mu.Unlock()

	return handle, nil
}

// TryEnqueue inserts d without blocking. It returns execerr.QueueFull if the
// pool is bounded and full, or execerr.QueueClosed if the pool has stopped.
func (p *Pool) TryEnqueue(d command.Descriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return execerr.QueueClosed
	}
	if p.bounded() && len(p.queue) >= p.maxSize {
		return execerr.QueueFull
	}
	p.queue = append(p.queue, queueItem{d: d})
	p.cond.Signal()
	p.reportQueueDepthLocked()
	return nil
}

// EnqueueBatch inserts every descriptor in ds, blocking as needed on a
// bounded pool. It returns the number actually inserted, which is less than
// len(ds) only if the pool was stopped partway through.
func (p *Pool) EnqueueBatch(ds []command.Descriptor) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	inserted := 0
	for _, d := range ds {
		for p.bounded() && len(p.queue) >= p.maxSize && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			break
		}
		p.queue = append(p.queue, queueItem{d: d})
		inserted++
	}
	p.cond.Broadcast()
	p.reportQueueDepthLocked()
	return inserted
}

// TryEnqueueBatch inserts as many descriptors as fit without blocking and
// returns the count inserted.
func (p *Pool) TryEnqueueBatch(ds []command.Descriptor) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0
	}
	inserted := 0
	for _, d := range ds {
		if p.bounded() && len(p.queue) >= p.maxSize {
			break
		}
		p.queue = append(p.queue, queueItem{d: d})
		inserted++
	}
	if inserted > 0 {
		p.cond.Broadcast()
		p.reportQueueDepthLocked()
	}
	return inserted
}

// Dequeue pops the head descriptor, or returns ok=false if the queue is
// empty. Task metadata attached via Submit is discarded; callers that need
// it should drive the dispatch loop instead of calling Dequeue directly.
func (p *Pool) Dequeue() (d command.Descriptor, ok bool) {
	item, ok := p.dequeueItem()
	if !ok {
		return command.Descriptor{}, false
	}
	return item.d, true
}

func (p *Pool) dequeueItem() (queueItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return queueItem{}, false
	}
	item := p.queue[0]
	p.queue = p.queue[1:]
	p.cond.Signal()
	p.reportQueueDepthLocked()
	return item, true
}

// reportQueueDepthLocked pushes the current queue length to Collector, if
// set. Callers must hold p.mu.
func (p *Pool) reportQueueDepthLocked() {
	if p.Collector != nil {
		p.Collector.SetQueueDepth(len(p.queue))
	}
}

// Len returns the current queue length.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// IsEmpty reports whether the queue currently holds no descriptors.
func (p *Pool) IsEmpty() bool { return p.Len() == 0 }

// MaxSize returns the configured bound and whether one is set.
func (p *Pool) MaxSize() (int, bool) {
	if !p.bounded() {
		return 0, false
	}
	return p.maxSize, true
}

// Clear discards every queued descriptor and returns how many were removed.
// Any Submit-created handle among the removed items observes SenderGone.
func (p *Pool) Clear() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.queue)
	for _, item := range p.queue {
		if item.sender != nil {
			item.sender.Drop()
		}
	}
	p.queue = nil
	p.cond.Broadcast()
	p.reportQueueDepthLocked()
	return n
}

// dispatchLoop is the per-worker loop shared by every Start* variant: it
// dequeues items and hands each to run until the pool is stopped.
func (p *Pool) dispatchLoop(pollInterval time.Duration, run func(execbackend.Backend, command.Descriptor) (execresult.Result, error), backend execbackend.Backend) {
	defer p.wg.Done()
	for !p.stopped.Load() {
		item, ok := p.dequeueItem()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		if p.stopped.Load() {
			if item.hasTask && item.sender != nil {
				item.sender.Drop()
			}
			return
		}
		p.runItem(item, run, backend)
	}
}

// runItem executes one queue item, updating the tracker and delivering the
// result through the item's sender when the descriptor came from Submit.
func (p *Pool) runItem(item queueItem, run func(execbackend.Backend, command.Descriptor) (execresult.Result, error), backend execbackend.Backend) {
	if item.hasTask && p.Tracker != nil {
		p.Tracker.Update(item.id, exectask.StatusRunning)
	}

	if p.Collector != nil {
		p.Collector.RecordDispatch()
		p.Collector.InFlightStarted()
	}

	start := time.Now()
	result, err := run(backend, item.d)
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

func executeViaBackend(backend execbackend.Backend, d command.Descriptor) (execresult.Result, error) {
	return backend.Execute(context.Background(), d)
}

// StartExecutor spawns internal dispatch-loop workers using the pool's
// configured backend. It is a no-op if the pool is already running.
func (p *Pool) StartExecutor(pollInterval time.Duration) {
	p.StartExecutorWithWorkers(pollInterval, defaultWorkerCount())
}

// StartExecutorWithWorkers is StartExecutor with an explicit worker count.
func (p *Pool) StartExecutorWithWorkers(pollInterval time.Duration, workers int) {
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
		go p.dispatchLoop(pollInterval, executeViaBackend, p.backend)
	}
}

// StartExecutorWithWorkersAndLimit is identical to StartExecutorWithWorkers;
// the concurrency limit itself lives in the backend's construction (every
// backend takes a limit at Build time), so this entry point exists to
// mirror the original API surface without duplicating that configuration
// here.
func (p *Pool) StartExecutorWithWorkersAndLimit(pollInterval time.Duration, workers int, _ int) {
	p.StartExecutorWithWorkers(pollInterval, workers)
}

// StartWithExecutor starts dispatch-loop workers that call custom.Execute
// instead of the pool's configured backend.
func (p *Pool) StartWithExecutor(pollInterval time.Duration, custom execbackend.Backend) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.stopped.Store(false)
	workers := defaultWorkerCount()
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.dispatchLoop(pollInterval, executeViaBackend, custom)
	}
}

// ExecuteTask runs d synchronously against the pool's backend, bypassing
// the queue entirely.
func (p *Pool) ExecuteTask(d command.Descriptor) (execresult.Result, error) {
	return p.backend.Execute(context.Background(), d)
}

// Stop sets the stop flag and wakes every blocked producer and worker.
// Stopping is monotonic; calling Stop more than once is harmless. In-flight
// subprocesses started before Stop are not killed: Stop waits for each
// worker to finish the task it is running, so no dispatched task is still
// running when Stop returns. Items still queued at that point are
// discarded, and each Submit-created one has its sender dropped so its
// Handle.Wait() observes SenderGone.
func (p *Pool) Stop() {
	p.stopped.Store(true)

	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
	p.running.Store(false)

	p.mu.Lock()
	drained := len(p.queue)
	for _, item := range p.queue {
		if item.sender != nil {
			item.sender.Drop()
		}
	}
	p.queue = nil
	p.reportQueueDepthLocked()
	p.mu.Unlock()
	p.logger().Info("pool_stopped", "drained", drained)
}

// forceCloser is implemented by backends that hold resources beyond a
// single Execute call (ThreadBackend's worker goroutines, ProcessPoolBackend's
// resident children). StopForced tears those down instead of leaving them to
// finish their current work.
type forceCloser interface {
	Close()
}

// StopForced is Stop plus an immediate teardown of the backend's own
// resources: a ThreadBackend's worker goroutines are told to exit and a
// ProcessPoolBackend's resident children are killed, rather than left to
// finish naturally. It does not reach into an already-dispatched
// ProcessBackend subprocess; a stop, forced or not, never kills a
// subprocess that has already started outside the pool's own
// worker-management resources.
func (p *Pool) StopForced() {
	p.Stop()
	if fc, ok := p.backend.(forceCloser); ok {
		fc.Close()
	}
}

// IsRunning reports whether at least one worker is active and Stop has not
// been called.
func (p *Pool) IsRunning() bool {
	return p.running.Load() && !p.stopped.Load()
}

func defaultWorkerCount() int {
	return 4
}

// errKind extracts the execerr.Kind label RecordOutcome expects, or "" for
// a nil error and "unknown" for an error this package's taxonomy doesn't
// cover.
func errKind(err error) string {
	if err == nil {
		return ""
	}
	var e *execerr.Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return "unknown"
}
