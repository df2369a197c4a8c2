package command

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	d := New("echo", "hi")
	if d.Program() != "echo" {
		t.Errorf("Program() = %q, want echo", d.Program())
	}
	if len(d.Args()) != 1 || d.Args()[0] != "hi" {
		t.Errorf("Args() = %v, want [hi]", d.Args())
	}
	timeout, ok := d.Timeout()
	if !ok || timeout != DefaultTimeout {
		t.Errorf("Timeout() = (%v, %v), want (%v, true)", timeout, ok, DefaultTimeout)
	}
	if _, ok := d.WorkingDir(); ok {
		t.Error("WorkingDir() ok = true, want false for a fresh descriptor")
	}
}

func TestWithMethodsReturnCopies(t *testing.T) {
	base := New("ls")
	withDir := base.WithWorkingDir("/tmp")
	withTimeout := base.WithTimeout(5 * time.Second)
	withoutTimeout := base.WithoutTimeout()

	if _, ok := base.WorkingDir(); ok {
		t.Error("base descriptor mutated by WithWorkingDir on a copy")
	}
	if dir, ok := withDir.WorkingDir(); !ok || dir != "/tmp" {
		t.Errorf("withDir.WorkingDir() = (%q, %v), want (/tmp, true)", dir, ok)
	}

	if timeout, _ := base.Timeout(); timeout != DefaultTimeout {
		t.Error("base descriptor mutated by WithTimeout on a copy")
	}
	if timeout, ok := withTimeout.Timeout(); !ok || timeout != 5*time.Second {
		t.Errorf("withTimeout.Timeout() = (%v, %v), want (5s, true)", timeout, ok)
	}

	if _, ok := withoutTimeout.Timeout(); ok {
		t.Error("WithoutTimeout() left a timeout set")
	}
}

func TestNewCopiesArgsSlice(t *testing.T) {
	args := []string{"a", "b"}
	d := New("prog", args...)
	args[0] = "mutated"
	if d.Args()[0] != "a" {
		t.Errorf("Descriptor.Args() aliased the caller's slice: got %q", d.Args()[0])
	}
}
