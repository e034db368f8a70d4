package daemon_test

import (
	"context"
	"testing"

	"recitation/internal/daemon"
	"recitation/internal/job"
	"recitation/internal/pipeline"
	"recitation/internal/testsupport"
	"recitation/internal/workflow"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, *job.Record, *job.Record) (pipeline.Result, error) {
	return pipeline.Result{}, nil
}

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	q := testsupport.MustOpenQueue(t, cfg)
	records := testsupport.MustOpenRecords(t, cfg)
	mgr := workflow.NewManager(cfg, q, records, noopRunner{}, nil)
	d, err := daemon.New(cfg, q, records, nil, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon to report running, got %+v", status)
	}
	if status.LockFilePath == "" || status.QueueDBPath == "" || status.RecordsDBPath == "" {
		t.Fatalf("expected paths in status, got %+v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	build := func() *daemon.Daemon {
		q := testsupport.MustOpenQueue(t, cfg)
		records := testsupport.MustOpenRecords(t, cfg)
		d, err := daemon.New(cfg, q, records, nil, workflow.NewManager(cfg, q, records, noopRunner{}, nil))
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		t.Cleanup(d.Stop)
		return d
	}
	first, second := build(), build()

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected the second daemon to be locked out")
	}
	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
