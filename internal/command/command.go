// Package command describes a single external command invocation.
package command

import "time"

// DefaultTimeout is applied to every Descriptor created with New.
const DefaultTimeout = 10 * time.Second

// Descriptor is an immutable value describing one subprocess invocation.
// The With* methods never mutate the receiver; they return a modified copy,
// so a Descriptor can be shared freely across goroutines.
type Descriptor struct {
	program    string
	args       []string
	workingDir string
	hasDir     bool
	timeout    time.Duration
	hasTimeout bool
}

// New creates a Descriptor for program with the given arguments. The
// returned Descriptor carries the default ten-second timeout; use
// WithTimeout or WithoutTimeout to change that.
func New(program string, args ...string) Descriptor {
	argsCopy := make([]string, len(args))
	copy(argsCopy, args)
	return Descriptor{
		program:    program,
		args:       argsCopy,
		timeout:    DefaultTimeout,
		hasTimeout: true,
	}
}

// WithWorkingDir returns a copy of d with the working directory set to dir.
func (d Descriptor) WithWorkingDir(dir string) Descriptor {
	d.workingDir = dir
	d.hasDir = true
	return d
}

// WithTimeout returns a copy of d with the timeout set to timeout.
func (d Descriptor) WithTimeout(timeout time.Duration) Descriptor {
	d.timeout = timeout
	d.hasTimeout = true
	return d
}

// WithoutTimeout returns a copy of d with no timeout: the executor waits
// for the child to exit on its own.
func (d Descriptor) WithoutTimeout() Descriptor {
	d.timeout = 0
	d.hasTimeout = false
	return d
}

// Program returns the executable name or path.
func (d Descriptor) Program() string { return d.program }

// Args returns the argument list. The returned slice must not be mutated.
func (d Descriptor) Args() []string { return d.args }

// WorkingDir returns the configured working directory and whether one was
// set. When ok is false the child inherits the caller's working directory.
func (d Descriptor) WorkingDir() (dir string, ok bool) { return d.workingDir, d.hasDir }

// Timeout returns the configured timeout and whether one is set.
func (d Descriptor) Timeout() (timeout time.Duration, ok bool) { return d.timeout, d.hasTimeout }
