package execbackend

import "testing"

func TestBuildProcessMode(t *testing.T) {
	b, err := Build(Config{Mode: ModeProcess})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := b.(*ProcessBackend); !ok {
		t.Errorf("Build(ModeProcess) = %T, want *ProcessBackend", b)
	}
}

func TestBuildThreadMode(t *testing.T) {
	b, err := Build(Config{Mode: ModeThread, Workers: 2})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	tb, ok := b.(*ThreadBackend)
	if !ok {
		t.Fatalf("Build(ModeThread) = %T, want *ThreadBackend", b)
	}
	tb.Close()
}

func TestBuildUnknownModeErrors(t *testing.T) {
	if _, err := Build(Config{Mode: Mode(99)}); err == nil {
		t.Error("Build() with unknown mode returned nil error")
	}
}

func TestBuildAppliesConcurrencyLimit(t *testing.T) {
	cfg := Config{Mode: ModeProcess}.WithConcurrencyLimit(3)
	b, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	pb, ok := b.(*ProcessBackend)
	if !ok {
		t.Fatalf("Build(ModeProcess) = %T, want *ProcessBackend", b)
	}
	if pb.sem == nil {
		t.Error("ProcessBackend built with a concurrency limit has no semaphore")
	}
}
