// Package main provides the execdemo CLI entry point: a small driver that
// builds a command pool from flags, runs -program once per line read from
// stdin with that line as its single argument (or over a fixed demo batch),
// and reports aggregated results.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cmdpool-go/cmdpool"
	"github.com/cmdpool-go/cmdpool/internal/execbackend"
	"github.com/cmdpool-go/cmdpool/internal/execconfig"
	"github.com/cmdpool-go/cmdpool/internal/execlog"
	"github.com/cmdpool-go/cmdpool/internal/execmetrics"
	"github.com/cmdpool-go/cmdpool/internal/execretry"
	"github.com/cmdpool-go/cmdpool/internal/exectui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-version", "--version", "version":
			fmt.Printf("execdemo %s\n", version)
			return 0
		}
	}

	// The process-pool backend re-execs this same binary with WorkerEnv set
	// to run it as a resident IPC worker; that must be checked before any
	// flag parsing or stdin reads.
	if os.Getenv(execbackend.WorkerEnv) != "" {
		if err := execbackend.ServeWorker(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "worker: %v\n", err)
			return 1
		}
		return 0
	}

	mode := flag.String("mode", "process", "backend mode: process, thread, process_pool")
	workers := flag.Int("workers", 0, "worker count (0 = hardware parallelism)")
	limit := flag.Int("limit", 0, "concurrent-subprocess limit (0 = unbounded)")
	maxQueue := flag.Int("max-queue", 0, "bounded queue size (0 = unbounded)")
	lockfree := flag.Bool("lockfree", false, "use the lock-free queue pool instead of the mutex queue")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on (empty disables)")
	logFormat := flag.String("log-format", "json", "log format: json or text")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	verbose := flag.Bool("verbose", false, "force debug logging")
	program := flag.String("program", "echo", "program to run for each stdin line")
	retryAttempts := flag.Int("retry-attempts", 0, "resubmit a failing task this many times with backoff (0 disables retry)")
	tui := flag.Bool("tui", false, "run an interactive dashboard instead of printing per-task logs")
	flag.Parse()

	logger := execlog.New(*logFormat, *logLevel, *verbose)
	execlog.SetDefault(logger)

	runtimeCfg := execconfig.DefaultConfig()
	runtimeCfg.Mode = *mode
	if *workers > 0 {
		runtimeCfg.Workers = *workers
	}
	runtimeCfg.ConcurrencyLimit = *limit
	runtimeCfg.MaxQueue = *maxQueue
	runtimeCfg.MetricsAddr = *metricsAddr
	runtimeCfg.LogFormat = *logFormat
	runtimeCfg.LogLevel = *logLevel
	runtimeCfg.Verbose = *verbose
	if *lockfree {
		runtimeCfg.QueueImpl = "lockfree"
	}

	if err := execconfig.Validate(runtimeCfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	backendCfg := cmdpool.Config{
		Mode:    parseMode(runtimeCfg.Mode),
		Workers: runtimeCfg.Workers,
	}
	if runtimeCfg.ConcurrencyLimit > 0 {
		backendCfg = backendCfg.WithConcurrencyLimit(runtimeCfg.ConcurrencyLimit)
	}

	backend, err := cmdpool.Build(backendCfg)
	if err != nil {
		logger.Error("backend_build_failed", "error", err)
		return 1
	}
	if pp, ok := backend.(*execbackend.ProcessPoolBackend); ok {
		pp.WithLogger(logger)
	}

	var collector *execmetrics.Collector
	if *metricsAddr != "" {
		collector = execmetrics.NewCollector(prometheusRegistry())
		server := execmetrics.NewServer(*metricsAddr, logger)
		server.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
	}

	tracker := cmdpool.NewTracker()
	digest := cmdpool.NewLatencyDigest()

	// driver is the thin surface run() drives regardless of which queue
	// implementation -lockfree selects.
	var driver poolDriver
	if *lockfree {
		lfPool := cmdpool.NewLockFree(backend)
		lfPool.Tracker = tracker
		lfPool.Digest = digest
		lfPool.Collector = collector
		lfPool.Logger = logger
		lfPool.StartExecutorWithWorkers(runtimeCfg.PollInterval, runtimeCfg.Workers)
		driver = lockFreePoolDriver{pool: lfPool}
	} else {
		pool := cmdpool.NewWithLimit(backend, runtimeCfg.MaxQueue)
		pool.Tracker = tracker
		pool.Digest = digest
		pool.Collector = collector
		pool.Logger = logger
		pool.StartExecutorWithWorkers(runtimeCfg.PollInterval, runtimeCfg.Workers)
		driver = mutexPoolDriver{pool: pool}
	}
	defer driver.Stop()

	lines := readLines(os.Stdin)
	if len(lines) == 0 {
		lines = []string{"hello", "world"}
	}

	if *tui {
		return runDashboard(driver, tracker, digest, lines, *program, logger)
	}

	var completed, failed int

	if *retryAttempts > 0 {
		for _, line := range lines {
			d := cmdpool.NewCommand(*program, line)
			result, err := driver.SubmitWithRetry(d, *retryAttempts, execretry.DefaultConfig())
			if err != nil {
				failed++
				logger.Warn("task_failed_after_retries", "attempts", *retryAttempts, "error", err)
				continue
			}
			completed++
			logger.Info("task_completed", "exit_code", result.ExitCode)
		}
		logger.Info("done", "completed", completed, "failed", failed)
		return 0
	}

	handles := make([]*cmdpool.Handle, 0, len(lines))
	for _, line := range lines {
		d := cmdpool.NewCommand(*program, line)
		handle, err := driver.Submit(d)
		if err != nil {
			logger.Error("submit_failed", "error", err)
			continue
		}
		handles = append(handles, handle)
	}

	for _, h := range handles {
		result, err := h.Wait()
		if err != nil {
			failed++
			logger.Warn("task_failed", "task_id", h.ID(), "error", err)
			continue
		}
		completed++
		logger.Info("task_completed", "task_id", h.ID(), "exit_code", result.ExitCode)
	}

	logger.Info("done", "completed", completed, "failed", failed)
	return 0
}

// poolDriver is the surface run() needs from whichever pool implementation
// -lockfree selects. cmdpool.Pool and cmdpool.LockFreePool expose the same
// operations under slightly different signatures (LockFreePool.Submit can
// never fail, so it has no error to return); the two driver types below
// normalize that difference.
type poolDriver interface {
	Submit(d cmdpool.Descriptor) (*cmdpool.Handle, error)
	SubmitWithRetry(d cmdpool.Descriptor, maxAttempts int, cfg execretry.Config) (cmdpool.Result, error)
	Len() int
	Stop()
}

type mutexPoolDriver struct{ pool *cmdpool.Pool }

func (d mutexPoolDriver) Submit(desc cmdpool.Descriptor) (*cmdpool.Handle, error) {
	return d.pool.Submit(desc)
}

func (d mutexPoolDriver) SubmitWithRetry(desc cmdpool.Descriptor, maxAttempts int, cfg execretry.Config) (cmdpool.Result, error) {
	return d.pool.SubmitWithRetry(desc, maxAttempts, cfg)
}

func (d mutexPoolDriver) Len() int { return d.pool.Len() }
func (d mutexPoolDriver) Stop()    { d.pool.Stop() }

type lockFreePoolDriver struct{ pool *cmdpool.LockFreePool }

func (d lockFreePoolDriver) Submit(desc cmdpool.Descriptor) (*cmdpool.Handle, error) {
	return d.pool.Submit(desc), nil
}

func (d lockFreePoolDriver) SubmitWithRetry(desc cmdpool.Descriptor, maxAttempts int, cfg execretry.Config) (cmdpool.Result, error) {
	return d.pool.SubmitWithRetry(desc, maxAttempts, cfg)
}

func (d lockFreePoolDriver) Len() int { return d.pool.Len() }
func (d lockFreePoolDriver) Stop()    { d.pool.Stop() }

// runDashboard submits lines in the background and drives an interactive
// Bubble Tea dashboard over the pool's tracker and latency digest until the
// user quits.
func runDashboard(driver poolDriver, tracker *cmdpool.Tracker, digest *cmdpool.LatencyDigest, lines []string, program string, logger *slog.Logger) int {
	go func() {
		for _, line := range lines {
			if _, err := driver.Submit(cmdpool.NewCommand(program, line)); err != nil {
				logger.Error("submit_failed", "error", err)
			}
		}
	}()

	source := poolStatsSource{driver: driver, tracker: tracker, digest: digest}
	model := exectui.New(source)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		logger.Error("dashboard_exited_with_error", "error", err)
		return 1
	}
	return 0
}

// poolStatsSource adapts a running poolDriver to exectui.StatsSource,
// keeping execpool itself free of any Bubble Tea dependency.
type poolStatsSource struct {
	driver  poolDriver
	tracker *cmdpool.Tracker
	digest  *cmdpool.LatencyDigest
}

func (s poolStatsSource) Snapshot() exectui.Snapshot {
	return exectui.Snapshot{
		QueueDepth: s.driver.Len(),
		Pending:    s.tracker.CountByStatus(cmdpool.StatusPending),
		Running:    s.tracker.CountByStatus(cmdpool.StatusRunning),
		Completed:  s.tracker.CountByStatus(cmdpool.StatusCompleted),
		Failed:     s.tracker.CountByStatus(cmdpool.StatusFailed),
		P50Latency: secondsToDuration(s.digest.Quantile(0.5)),
		P95Latency: secondsToDuration(s.digest.Quantile(0.95)),
		P99Latency: secondsToDuration(s.digest.Quantile(0.99)),
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func readLines(f *os.File) []string {
	stat, err := f.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func parseMode(s string) cmdpool.Mode {
	switch s {
	case "thread":
		return cmdpool.ModeThread
	case "process_pool":
		return cmdpool.ModeProcessPool
	default:
		return cmdpool.ModeProcess
	}
}

func prometheusRegistry() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}
