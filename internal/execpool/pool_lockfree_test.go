package execpool

import (
	"testing"
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execbackend"
	"github.com/cmdpool-go/cmdpool/internal/exectask"
)

func TestLockFreePoolSubmitAndWait(t *testing.T) {
	p := NewLockFree(execbackend.NewProcessBackend(0))
	p.StartExecutorWithWorkers(testPoll, 2)
	defer p.Stop()

	handle := p.Submit(command.New("/bin/echo", "lockfree"))
	result, err := handle.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if string(result.Stdout) != "lockfree\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "lockfree\n")
	}
}

func TestLockFreePoolTracksStatus(t *testing.T) {
	p := NewLockFree(execbackend.NewProcessBackend(0))
	tracker := exectask.NewTracker()
	p.WithTracker(tracker)
	p.StartExecutorWithWorkers(testPoll, 1)
	defer p.Stop()

	handle := p.Submit(command.New("/bin/true"))
	if _, err := handle.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	status, ok := tracker.Get(handle.ID())
	if !ok || status != exectask.StatusCompleted {
		t.Errorf("tracker status = (%v, %v), want (Completed, true)", status, ok)
	}
}

func TestLockFreePoolEnqueueNeverBlocks(t *testing.T) {
	p := NewLockFree(execbackend.NewProcessBackend(0))
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			p.Enqueue(command.New("/bin/true"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on an always-unbounded queue")
	}
	if p.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", p.Len())
	}
}

func TestLockFreePoolStopDrainsWorkers(t *testing.T) {
	p := NewLockFree(execbackend.NewProcessBackend(0))
	p.StartExecutorWithWorkers(testPoll, 2)
	if !p.IsRunning() {
		t.Fatal("IsRunning() = false after start")
	}
	p.Stop()
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}
