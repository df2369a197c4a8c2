package execbackend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execerr"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
	"github.com/cmdpool-go/cmdpool/internal/execsem"
)

// SpawnFunc builds and starts one resident worker child process. It must
// return the running command along with pipes wired to its stdin/stdout. The
// default, DefaultSpawn, re-executes the calling binary with WorkerEnv set.
type SpawnFunc func() (*exec.Cmd, io.WriteCloser, io.ReadCloser, error)

// DefaultSpawn re-execs os.Args[0] with WorkerEnv set, so a host binary that
// checks WorkerEnv in main() before doing anything else becomes a valid
// resident worker.
func DefaultSpawn() (*exec.Cmd, io.WriteCloser, io.ReadCloser, error) {
	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), WorkerEnv+"=1")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return cmd, stdin, stdout, nil
}

type poolWorker struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	// stdout is unbuffered on purpose: readResponse reads exactly the
	// bytes of one frame at a time.
	stdout io.ReadCloser
}

// ProcessPoolBackend maintains a fixed number of resident worker child
// processes speaking the length-framed binary protocol in protocol.go. Idle
// workers sit on a free list guarded by a mutex and condition variable. A
// worker that dies or sends a malformed frame is torn down and replaced.
type ProcessPoolBackend struct {
	spawn  SpawnFunc
	sem    *execsem.Semaphore
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	free   []*poolWorker
	total  int
	nextID atomic.Uint64
}

// WithLogger attaches a logger; worker crashes, respawns, and permanent
// capacity loss are reported through it. Defaults to slog.Default().
func (b *ProcessPoolBackend) WithLogger(logger *slog.Logger) *ProcessPoolBackend {
	b.logger = logger
	return b
}

// NewProcessPoolBackend spawns size resident workers using spawn (DefaultSpawn
// if nil). limit of 0 leaves total concurrent dispatches unbounded beyond
// size itself.
func NewProcessPoolBackend(size int, limit int, spawn SpawnFunc) (*ProcessPoolBackend, error) {
	if size <= 0 {
		size = 1
	}
	if spawn == nil {
		spawn = DefaultSpawn
	}
	b := &ProcessPoolBackend{spawn: spawn, logger: slog.Default()}
	b.cond = sync.NewCond(&b.mu)
	if limit > 0 {
		b.sem = execsem.New(limit)
	}

	for i := 0; i < size; i++ {
		w, err := b.spawnWorker()
		if err != nil {
			b.killAll()
			return nil, fmt.Errorf("execbackend: spawning worker %d/%d: %w", i+1, size, err)
		}
		b.free = append(b.free, w)
		b.total++
	}
	return b, nil
}

func (b *ProcessPoolBackend) spawnWorker() (*poolWorker, error) {
	cmd, stdin, stdout, err := b.spawn()
	if err != nil {
		return nil, err
	}
	return &poolWorker{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// acquireWorker blocks until a worker is free, then removes it from the
// free list.
func (b *ProcessPoolBackend) acquireWorker() *poolWorker {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.free) == 0 {
		b.cond.Wait()
	}
	n := len(b.free)
	w := b.free[n-1]
	b.free = b.free[:n-1]
	return w
}

// releaseWorker returns w to the free list, or if w is nil (torn down after
// a crash) spawns and installs a replacement so pool capacity is preserved.
func (b *ProcessPoolBackend) releaseWorker(w *poolWorker) {
	b.mu.Lock()
	if w == nil {
		replacement, err := b.spawnWorker()
		if err != nil {
			// Capacity permanently shrinks by one; the next acquire simply
			// waits longer.
			b.total--
			b.mu.Unlock()
			b.logger.Error("worker_respawn_failed", "error", err, "remaining_workers", b.total)
			return
		}
		w = replacement
		b.logger.Warn("worker_respawned", "total_workers", b.total)
	}
	b.free = append(b.free, w)
	b.mu.Unlock()
	b.cond.Signal()
}

func (b *ProcessPoolBackend) killAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.free {
		killWorker(w)
	}
	b.free = nil
}

func killWorker(w *poolWorker) {
	_ = w.stdin.Close()
	_ = w.stdout.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	_ = w.cmd.Wait()
}

// Execute dispatches d to a free resident worker, waits for its response,
// and returns the free worker to the pool. A worker that crashes or returns
// a malformed frame is torn down and replaced before Execute returns.
func (b *ProcessPoolBackend) Execute(ctx context.Context, d command.Descriptor) (execresult.Result, error) {
	if b.sem != nil {
		guard := b.sem.AcquireGuard()
		defer guard.Release()
	}

	w := b.acquireWorker()

	req := ipcRequest{requestID: b.nextID.Add(1), program: d.Program(), args: d.Args()}
	if dir, ok := d.WorkingDir(); ok {
		req.workdir, req.hasWorkdir = dir, true
	}
	if timeout, ok := d.Timeout(); ok {
		req.timeoutMs = uint64(timeout.Milliseconds())
	}

	if err := writeRequest(w.stdin, req); err != nil {
		b.logger.Warn("worker_write_failed", "error", err)
		killWorker(w)
		b.releaseWorker(nil)
		return execresult.Result{}, execerr.Child(fmt.Sprintf("writing request to worker: %v", err))
	}

	resp, err := readResponse(w.stdout)
	if err != nil {
		b.logger.Warn("worker_read_failed", "error", err)
		killWorker(w)
		b.releaseWorker(nil)
		return execresult.Result{}, execerr.Child(fmt.Sprintf("reading response from worker: %v", err))
	}

	b.releaseWorker(w)

	switch resp.kind {
	case errNone:
		return execresult.Result{ExitCode: int(resp.exitCode), Stdout: resp.stdout, Stderr: resp.stderr}, nil
	case errTimeoutKind:
		timeout, _ := d.Timeout()
		return execresult.Result{}, execerr.Timeout(timeout)
	case errChildKind:
		return execresult.Result{}, execerr.Child(resp.errorMsg)
	default:
		return execresult.Result{}, execerr.IO(fmt.Errorf("%s", resp.errorMsg))
	}
}

// Close kills every resident worker currently on the free list. A worker
// held by an Execute call still in progress is not killed and rejoins the
// free list when that call returns, so Close takes down the whole pool only
// when no Execute call is outstanding.
func (b *ProcessPoolBackend) Close() {
	b.killAll()
}
