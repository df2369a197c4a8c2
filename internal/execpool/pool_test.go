package execpool

import (
	"testing"
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execbackend"
	"github.com/cmdpool-go/cmdpool/internal/execerr"
	"github.com/cmdpool-go/cmdpool/internal/exectask"
)

const testPoll = time.Millisecond

func TestSubmitAndExecuteReturnsResult(t *testing.T) {
	p := New(execbackend.NewProcessBackend(0))
	p.StartExecutorWithWorkers(testPoll, 2)
	defer p.Stop()

	handle, err := p.Submit(command.New("/bin/echo", "submitted"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	result, err := handle.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if string(result.Stdout) != "submitted\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "submitted\n")
	}
}

func TestSubmitUpdatesTracker(t *testing.T) {
	p := New(execbackend.NewProcessBackend(0))
	tracker := exectask.NewTracker()
	p.WithTracker(tracker)
	p.StartExecutorWithWorkers(testPoll, 1)
	defer p.Stop()

	handle, err := p.Submit(command.New("/bin/true"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := handle.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	status, ok := tracker.Get(handle.ID())
	if !ok || status != exectask.StatusCompleted {
		t.Errorf("tracker status = (%v, %v), want (Completed, true)", status, ok)
	}
}

func TestTryEnqueueFailsWhenBoundedQueueFull(t *testing.T) {
	p := NewWithLimit(execbackend.NewProcessBackend(0), 1)
	if err := p.TryEnqueue(command.New("/bin/true")); err != nil {
		t.Fatalf("first TryEnqueue error = %v", err)
	}
	if err := p.TryEnqueue(command.New("/bin/true")); !execerr.Is(err, execerr.KindQueueFull) {
		t.Errorf("second TryEnqueue error = %v, want KindQueueFull", err)
	}
}

func TestEnqueueAfterStopReturnsQueueClosed(t *testing.T) {
	p := New(execbackend.NewProcessBackend(0))
	p.StartExecutor(testPoll)
	p.Stop()

	if err := p.Enqueue(command.New("/bin/true")); !execerr.Is(err, execerr.KindQueueClosed) {
		t.Errorf("Enqueue() after Stop error = %v, want KindQueueClosed", err)
	}
}

func TestSubmitAfterStopReturnsQueueClosedAndDropsSender(t *testing.T) {
	p := New(execbackend.NewProcessBackend(0))
	p.StartExecutor(testPoll)
	p.Stop()

	handle, err := p.Submit(command.New("/bin/true"))
	if !execerr.Is(err, execerr.KindQueueClosed) {
		t.Fatalf("Submit() after Stop error = %v, want KindQueueClosed", err)
	}
	if handle != nil {
		t.Error("Submit() after Stop returned a non-nil handle")
	}
}

func TestEnqueueBatchInsertsAll(t *testing.T) {
	p := New(execbackend.NewProcessBackend(0))
	ds := []command.Descriptor{
		command.New("/bin/true"),
		command.New("/bin/true"),
		command.New("/bin/true"),
	}
	if n := p.EnqueueBatch(ds); n != len(ds) {
		t.Errorf("EnqueueBatch() = %d, want %d", n, len(ds))
	}
	if p.Len() != len(ds) {
		t.Errorf("Len() = %d, want %d", p.Len(), len(ds))
	}
}

func TestClearDropsPendingHandles(t *testing.T) {
	p := NewWithLimit(execbackend.NewProcessBackend(0), 10)
	handle, err := p.Submit(command.New("/bin/true"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if n := p.Clear(); n != 1 {
		t.Fatalf("Clear() = %d, want 1", n)
	}
	if !p.IsEmpty() {
		t.Error("IsEmpty() = false after Clear")
	}

	_, err = handle.Wait()
	if !execerr.Is(err, execerr.KindSenderGone) {
		t.Errorf("Wait() after Clear error = %v, want KindSenderGone", err)
	}
}

func TestMaxSizeReportsBound(t *testing.T) {
	p := NewWithLimit(execbackend.NewProcessBackend(0), 5)
	size, ok := p.MaxSize()
	if !ok || size != 5 {
		t.Errorf("MaxSize() = (%d, %v), want (5, true)", size, ok)
	}

	unbounded := New(execbackend.NewProcessBackend(0))
	if _, ok := unbounded.MaxSize(); ok {
		t.Error("MaxSize() ok = true for an unbounded pool")
	}
}

func TestStartExecutorIsIdempotentWhileRunning(t *testing.T) {
	p := New(execbackend.NewProcessBackend(0))
	p.StartExecutorWithWorkers(testPoll, 2)
	p.StartExecutorWithWorkers(testPoll, 2) // must not spawn a second wave
	defer p.Stop()

	if !p.IsRunning() {
		t.Error("IsRunning() = false after StartExecutor")
	}
}

func TestExecuteTaskBypassesQueue(t *testing.T) {
	p := New(execbackend.NewProcessBackend(0))
	result, err := p.ExecuteTask(command.New("/bin/echo", "direct"))
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if string(result.Stdout) != "direct\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "direct\n")
	}
	if p.Len() != 0 {
		t.Error("ExecuteTask() left an item on the queue")
	}
}

func TestStopForcedClosesThreadBackend(t *testing.T) {
	backend := execbackend.NewThreadBackend(2, 0)
	p := New(backend)
	p.StartExecutorWithWorkers(testPoll, 1)

	handle, err := p.Submit(command.New("/bin/true"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := handle.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	p.StopForced()
	if p.IsRunning() {
		t.Error("IsRunning() = true after StopForced")
	}
}
