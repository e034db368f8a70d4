package daemonrun_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recitation/internal/daemonrun"
	"recitation/internal/logging"
	"recitation/internal/testsupport"
)

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStylesheet(), testsupport.WithStubbedBinaries())
	cfg.Logging.Level = "error"
	pidPath := filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(pidPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("pid file never appeared; run returned %v", <-done)
		}
		time.Sleep(10 * time.Millisecond)
	}

	runLogs, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, logging.RunLogPattern))
	if err != nil || len(runLogs) != 1 {
		t.Fatalf("expected one per-run log, got %v (err=%v)", runLogs, err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, logging.LogFileName)); err != nil {
		t.Fatalf("expected current log pointer: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(pidPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, stat err = %v", err)
	}
	if _, err := os.Stat(cfg.QueuePath()); err != nil {
		t.Fatalf("expected queue database: %v", err)
	}
}

func TestRunPrunesExpiredRunLogs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Level = "error"
	cfg.Logging.RetentionDays = 7
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	stale := filepath.Join(cfg.Paths.LogDir, logging.RunLogFileName("20200101T000000.000Z"))
	if err := os.WriteFile(stale, []byte("old run\n"), 0o644); err != nil {
		t.Fatalf("write stale log: %v", err)
	}
	old := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// Preflight fails without a stylesheet, after logging is set up.
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err == nil {
		t.Fatal("expected preflight failure")
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stale run log pruned, stat err = %v", err)
	}
}

func TestRunFailsPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Level = "error"

	err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{})
	if err == nil {
		t.Fatal("expected preflight failure without a stylesheet")
	}
	if !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := daemonrun.Run(context.Background(), nil, daemonrun.Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
