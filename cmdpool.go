// Package cmdpool executes external OS commands at scale through a small
// set of pluggable backends (one process per command, a fixed pool of
// worker goroutines, or a fixed pool of resident child processes) fed by a
// bounded or unbounded command queue.
//
// A typical caller builds a Config, gets a Backend from Build, wraps it in
// a Pool, starts the dispatch loop, and submits work:
//
//	cfg := cmdpool.DefaultConfig()
//	backend, err := cmdpool.Build(cfg)
//	pool := cmdpool.New(backend)
//	pool.StartExecutor(cmdpool.DefaultPollInterval)
//	handle, err := pool.Submit(cmdpool.NewCommand("echo", "hi"))
//	result, err := handle.Wait()
//	pool.Stop()
package cmdpool

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execbackend"
	"github.com/cmdpool-go/cmdpool/internal/execconfig"
	"github.com/cmdpool-go/cmdpool/internal/execerr"
	"github.com/cmdpool-go/cmdpool/internal/execmetrics"
	"github.com/cmdpool-go/cmdpool/internal/execpool"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
	"github.com/cmdpool-go/cmdpool/internal/execstats"
	"github.com/cmdpool-go/cmdpool/internal/exectask"
)

// Descriptor describes one command invocation. Use NewCommand to build one.
type Descriptor = command.Descriptor

// NewCommand builds a Descriptor for program with the given arguments,
// carrying the default ten-second timeout.
func NewCommand(program string, args ...string) Descriptor {
	return command.New(program, args...)
}

// Result is a completed command's exit code and buffered output.
type Result = execresult.Result

// Config selects and sizes a backend.
type Config = execbackend.Config

// Mode selects which backend strategy a pool uses.
type Mode = execbackend.Mode

const (
	ModeProcess     = execbackend.ModeProcess
	ModeThread      = execbackend.ModeThread
	ModeProcessPool = execbackend.ModeProcessPool
)

// DefaultConfig returns ModeProcess sized to detected hardware parallelism.
func DefaultConfig() Config { return execbackend.DefaultConfig() }

// Backend is the polymorphic "execute one command" contract.
type Backend = execbackend.Backend

// Build constructs the Backend selected by cfg.Mode.
func Build(cfg Config) (Backend, error) { return execbackend.Build(cfg) }

// Pool is the mutex-queue command pool (bounded or unbounded).
type Pool = execpool.Pool

// New creates an unbounded Pool over backend.
func New(backend Backend) *Pool { return execpool.New(backend) }

// NewWithLimit creates a Pool whose queue holds at most maxSize descriptors.
func NewWithLimit(backend Backend, maxSize int) *Pool {
	return execpool.NewWithLimit(backend, maxSize)
}

// LockFreePool is the always-unbounded, lock-free-queue command pool.
type LockFreePool = execpool.LockFreePool

// NewLockFree creates an unbounded lock-free Pool over backend.
func NewLockFree(backend Backend) *LockFreePool { return execpool.NewLockFree(backend) }

// DefaultPollInterval is a reasonable dispatch-loop wake-up interval.
const DefaultPollInterval = execpool.DefaultPollInterval

// Tracker maps task IDs to lifecycle state.
type Tracker = exectask.Tracker

// NewTracker creates an empty status tracker.
func NewTracker() *Tracker { return exectask.NewTracker() }

// Handle is the caller-held side of a one-shot task-result rendezvous.
type Handle = exectask.Handle

// Status is a task's lifecycle state, as tracked by a Tracker.
type Status = exectask.Status

const (
	StatusPending   = exectask.StatusPending
	StatusRunning   = exectask.StatusRunning
	StatusCompleted = exectask.StatusCompleted
	StatusFailed    = exectask.StatusFailed
)

// MetricsCollector reports queue depth, in-flight count, and dispatch
// outcomes to Prometheus. Attach one to a Pool with Pool.WithCollector (or
// by setting its exported Collector field) to make those metrics reachable.
type MetricsCollector = execmetrics.Collector

// NewMetricsCollector registers cmdpool's Prometheus collectors with
// registry and returns a MetricsCollector for a Pool to report through.
func NewMetricsCollector(registry prometheus.Registerer) *MetricsCollector {
	return execmetrics.NewCollector(registry)
}

// LatencyDigest accumulates completed-task durations and answers quantile
// queries. Attach one to a Pool with Pool.WithDigest to make it reachable.
type LatencyDigest = execstats.LatencyDigest

// NewLatencyDigest creates an empty LatencyDigest.
func NewLatencyDigest() *LatencyDigest { return execstats.NewLatencyDigest() }

// RuntimeConfig is the ambient runtime configuration: backend sizing lives
// in Config, everything else (logging, metrics, queue implementation,
// dispatch poll interval) lives here.
type RuntimeConfig = execconfig.Config

// NewRuntimeConfig returns the ambient defaults (logging, metrics, queue,
// dispatch) a host binary can layer a backend Config on top of.
func NewRuntimeConfig() *RuntimeConfig { return execconfig.DefaultConfig() }

// Error is the unified error type returned by every layer of the pool.
type Error = execerr.Error

// Sentinel errors returned by pool and handle operations.
var (
	ErrQueueFull   = execerr.QueueFull
	ErrQueueClosed = execerr.QueueClosed
	ErrSenderGone  = execerr.SenderGone
)
