package execproc

import (
	"context"
	"testing"
	"time"

	"github.com/cmdpool-go/cmdpool/internal/command"
	"github.com/cmdpool-go/cmdpool/internal/execerr"
)

func TestExecuteCapturesStdout(t *testing.T) {
	e := New()
	d := command.New("/bin/echo", "hello")

	result, err := e.Execute(context.Background(), d)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if string(result.Stdout) != "hello\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "hello\n")
	}
}

func TestExecuteReportsNonZeroExitCode(t *testing.T) {
	e := New()
	d := command.New("/bin/false")

	result, err := e.Execute(context.Background(), d)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil (non-zero exit is not an error)", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", result.ExitCode)
	}
}

func TestExecuteKillsOnTimeout(t *testing.T) {
	e := New()
	d := command.New("/bin/sleep", "5").WithTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := e.Execute(context.Background(), d)
	elapsed := time.Since(start)

	if !execerr.Is(err, execerr.KindTimeout) {
		t.Fatalf("Execute() error = %v, want KindTimeout", err)
	}
	if elapsed >= 5*time.Second {
		t.Errorf("Execute() took %v, sleep 5 was not killed", elapsed)
	}
}

func TestExecuteWithoutTimeoutWaitsForExit(t *testing.T) {
	e := New()
	d := command.New("/bin/sleep", "0.05").WithoutTimeout()

	if _, ok := d.Timeout(); ok {
		t.Fatal("WithoutTimeout() left a timeout set")
	}

	result, err := e.Execute(context.Background(), d)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
}

func TestExecuteReturnsIOErrorForMissingProgram(t *testing.T) {
	e := New()
	d := command.New("/no/such/binary-cmdpool-test")

	_, err := e.Execute(context.Background(), d)
	if !execerr.Is(err, execerr.KindIO) {
		t.Errorf("Execute() error = %v, want KindIO", err)
	}
}

func TestExecuteHonorsWorkingDir(t *testing.T) {
	e := New()
	d := command.New("/bin/pwd").WithWorkingDir("/tmp")

	result, err := e.Execute(context.Background(), d)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := string(result.Stdout); got != "/tmp\n" {
		t.Errorf("pwd output = %q, want /tmp\\n", got)
	}
}
