// Package execproc implements a timed subprocess executor: spawn a
// command, wait for it with an optional deadline, kill on timeout, and
// capture buffered stdout/stderr.
package execproc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execerr"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
)

// Executor runs one command to completion, enforcing its descriptor's
// timeout if one is set.
type Executor struct{}

// New creates an Executor. It carries no state; a single instance can be
// shared across goroutines.
func New() *Executor {
	return &Executor{}
}

// Execute spawns d's program, waits for it to finish (respecting d's
// timeout if set), and returns the buffered result. On timeout, the child
// is killed best-effort and Execute returns execerr.Timeout without
// attempting to recover any partial output.
func (e *Executor) Execute(ctx context.Context, d command.Descriptor) (execresult.Result, error) {
	cmd := exec.CommandContext(ctx, d.Program(), d.Args()...)
	if dir, ok := d.WorkingDir(); ok {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	timeout, hasTimeout := d.Timeout()
	if !hasTimeout {
		if err := cmd.Run(); err != nil {
			if code, ok := exitCode(err); ok {
				return execresult.Result{ExitCode: code, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
			}
			return execresult.Result{}, failure(err)
		}
		return execresult.Result{ExitCode: 0, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	}

	if err := cmd.Start(); err != nil {
		return execresult.Result{}, execerr.IO(err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			if code, ok := exitCode(err); ok {
				return execresult.Result{ExitCode: code, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
			}
			return execresult.Result{}, failure(err)
		}
		return execresult.Result{ExitCode: 0, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil

	case <-timer.C:
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done // best-effort: wait for the kill to be observed, ignore the result
		return execresult.Result{}, execerr.Timeout(timeout)
	}
}

// exitCode extracts an exit code from a Wait/Run error. ok is false for
// errors that are not a plain non-zero exit (spawn failure, signal, etc.),
// which failure maps to an error instead.
func exitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

// failure maps a Wait/Run error that is not a plain exit: a child ended by a
// signal is a child error, anything else an I/O error.
func failure(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return execerr.Child(exitErr.Error())
	}
	return execerr.IO(err)
}
