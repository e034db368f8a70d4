package main

import (
	"context"
	"encoding/json"
	"testing"

	"recitation/internal/queue"
	"recitation/internal/testsupport"
)

func TestSubmitAndListQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"submit", "https://doi.org/10.1371/journal.pone.0001", "10.1/b"}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued 10.1371/journal.pone.0001 as #1")
	requireContains(t, out, "Queued 10.1/b as #2")

	out, _, err = runCLI(t, []string{"submit", "--reupload", "tables,text", "10.1/c"}, env.configPath)
	if err != nil {
		t.Fatalf("submit reupload: %v", err)
	}
	requireContains(t, out, "reupload tables,text")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "10.1371/journal.pone.0001")
	requireContains(t, out, "tables,text")

	out, _, err = runCLI(t, []string{"queue", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var entries []queue.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(entries) != 3 || entries[2].Request.Reupload == nil {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"submit", "https://doi.org/"}, env.configPath); err == nil {
		t.Fatal("expected empty identifier to fail")
	}
	if _, _, err := runCLI(t, []string{"submit", "--reupload", "audio", "10.1/a"}, env.configPath); err == nil {
		t.Fatal("expected unknown category to fail")
	}
	if _, _, err := runCLI(t, []string{"submit", "--all", "--reupload", "text", "10.1/a"}, env.configPath); err == nil {
		t.Fatal("expected --all with --reupload to fail")
	}

	store := testsupport.MustOpenQueue(t, env.cfg)
	n, err := store.Len(context.Background())
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing queued, got %d", n)
	}
}

func TestQueueRemoveAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenQueue(t, env.cfg)
	first := testsupport.MustPush(t, store, "10.1/a", nil)
	testsupport.MustPush(t, store, "10.1/b", nil)
	testsupport.MustPush(t, store, "10.1/c", nil)

	out, _, err := runCLI(t, []string{"queue", "remove", "999", formatSeq(first)}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "#999 not found")
	requireContains(t, out, "Removed #"+formatSeq(first))

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 queued request(s)")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	if _, _, err := runCLI(t, []string{"queue", "remove", "abc"}, env.configPath); err == nil {
		t.Fatal("expected invalid seq to fail")
	}
}

func TestQueueHealth(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"queue", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Integrity: ok")
	requireContains(t, out, "Claim order: fifo")
}
