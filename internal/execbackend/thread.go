package execbackend

import (
	"context"
	"sync"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execproc"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
	"github.com/cmdpool-go/cmdpool/internal/execsem"
)

type threadJob struct {
	d      command.Descriptor
	ctx    context.Context
	result chan threadOutcome
}

type threadOutcome struct {
	value execresult.Result
	err   error
}

// ThreadBackend is a fixed-size pool of internal worker goroutines drawing
// from a single unbounded internal queue. Execute submits a job and blocks
// the caller until a worker finishes it. An optional semaphore caps how
// many workers may have a live subprocess at once, independent of the
// worker count.
type ThreadBackend struct {
	exec *execproc.Executor
	sem  *execsem.Semaphore

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []threadJob
	closed bool
	wg     sync.WaitGroup
}

// NewThreadBackend starts `workers` worker goroutines. limit of 0 leaves
// concurrent subprocess count unbounded.
func NewThreadBackend(workers int, limit int) *ThreadBackend {
	if workers <= 0 {
		workers = 1
	}
	b := &ThreadBackend{exec: execproc.New()}
	b.cond = sync.NewCond(&b.mu)
	if limit > 0 {
		b.sem = execsem.New(limit)
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

func (b *ThreadBackend) worker() {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 && b.closed {
			b.mu.Unlock()
			return
		}
		job := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		var out threadOutcome
		if b.sem != nil {
			guard := b.sem.AcquireGuard()
			out.value, out.err = b.exec.Execute(job.ctx, job.d)
			guard.Release()
		} else {
			out.value, out.err = b.exec.Execute(job.ctx, job.d)
		}
		job.result <- out
	}
}

// Execute enqueues d and blocks until a worker completes it.
func (b *ThreadBackend) Execute(ctx context.Context, d command.Descriptor) (execresult.Result, error) {
	job := threadJob{d: d, ctx: ctx, result: make(chan threadOutcome, 1)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return execresult.Result{}, errClosed
	}
	b.queue = append(b.queue, job)
	b.mu.Unlock()
	b.cond.Signal()

	out := <-job.result
	return out.value, out.err
}

// Close signals every worker to exit once its current job (if any)
// finishes, and waits for them to terminate. The pool should be closed
// when the backend itself goes out of scope.
func (b *ThreadBackend) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
	b.wg.Wait()
}
