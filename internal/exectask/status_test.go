package exectask

import "testing"

func TestRegisterIsPending(t *testing.T) {
	tr := NewTracker()
	tr.Register(1)
	status, ok := tr.Get(1)
	if !ok || status != StatusPending {
		t.Errorf("Get(1) = (%v, %v), want (Pending, true)", status, ok)
	}
}

func TestRegisterIsNoOpWhenAlreadyPresent(t *testing.T) {
	tr := NewTracker()
	tr.Register(1)
	tr.Update(1, StatusRunning)
	tr.Register(1) // must not reset back to Pending
	status, _ := tr.Get(1)
	if status != StatusRunning {
		t.Errorf("second Register reset status to %v, want Running preserved", status)
	}
}

func TestValidTransitions(t *testing.T) {
	tr := NewTracker()
	tr.Register(1)

	if ok := tr.Update(1, StatusRunning); !ok {
		t.Fatal("Pending -> Running rejected")
	}
	if ok := tr.Update(1, StatusCompleted); !ok {
		t.Fatal("Running -> Completed rejected")
	}
	status, _ := tr.Get(1)
	if status != StatusCompleted {
		t.Errorf("final status = %v, want Completed", status)
	}
}

func TestInvalidTransitionsAreNoOps(t *testing.T) {
	tr := NewTracker()
	tr.Register(1)

	if ok := tr.Update(1, StatusCompleted); ok {
		t.Error("Pending -> Completed accepted, want rejected")
	}
	status, _ := tr.Get(1)
	if status != StatusPending {
		t.Errorf("status changed after rejected transition: %v", status)
	}

	tr.Update(1, StatusRunning)
	tr.Update(1, StatusFailed)
	if ok := tr.Update(1, StatusRunning); ok {
		t.Error("transition out of terminal state Failed accepted, want rejected")
	}
}

func TestUpdateUnknownIDReturnsFalse(t *testing.T) {
	tr := NewTracker()
	if ok := tr.Update(999, StatusRunning); ok {
		t.Error("Update on unregistered id returned true")
	}
}

func TestCountByStatus(t *testing.T) {
	tr := NewTracker()
	tr.Register(1)
	tr.Register(2)
	tr.Register(3)
	tr.Update(1, StatusRunning)
	tr.Update(2, StatusRunning)
	tr.Update(2, StatusCompleted)

	if n := tr.CountByStatus(StatusPending); n != 1 {
		t.Errorf("CountByStatus(Pending) = %d, want 1", n)
	}
	if n := tr.CountByStatus(StatusRunning); n != 1 {
		t.Errorf("CountByStatus(Running) = %d, want 1", n)
	}
	if n := tr.CountByStatus(StatusCompleted); n != 1 {
		t.Errorf("CountByStatus(Completed) = %d, want 1", n)
	}
}

func TestRemoveAndLen(t *testing.T) {
	tr := NewTracker()
	tr.Register(1)
	tr.Register(2)
	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	tr.Remove(1)
	if tr.Len() != 1 {
		t.Errorf("Len() after Remove = %d, want 1", tr.Len())
	}
	if _, ok := tr.Get(1); ok {
		t.Error("Get(1) ok = true after Remove")
	}
}
