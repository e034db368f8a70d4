package main

import (
	"strings"
	"testing"

	"github.com/gofrs/flock"
)

func TestStatusReportsPreflightAndStorage(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "not running")
	requireContains(t, out, "0 pending")
	requireContains(t, out, "0 total")
	requireNotContains(t, out, "[ERROR]")
	if strings.Contains(out, "\x1b[") {
		t.Fatal("expected no colour when stdout is not a terminal")
	}
}

func TestStatusDetectsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	lock := flock.New(env.cfg.LockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] running")
}

func TestStatusFailsWithoutCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Wiki.Username = ""
	env.cfg.Wiki.Password = ""
	t.Setenv("RECITATION_WIKI_USERNAME", "")
	t.Setenv("RECITATION_WIKI_PASSWORD", "")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err == nil {
		t.Fatal("expected status to fail")
	}
	requireContains(t, out, "[ERROR]")
}
