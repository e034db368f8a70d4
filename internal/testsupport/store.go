package testsupport

import (
	"context"
	"testing"

	"recitation/internal/config"
	"recitation/internal/job"
	"recitation/internal/jobstore"
	"recitation/internal/queue"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenRecords opens a jobstore.Store for tests and registers cleanup.
func MustOpenRecords(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustPush enqueues a request and returns its sequence number.
func MustPush(t testing.TB, store *queue.Store, identifier string, reupload *job.Selector) int64 {
	t.Helper()

	seq, err := store.Push(context.Background(), queue.Request{Identifier: identifier, Reupload: reupload})
	if err != nil {
		t.Fatalf("store.Push: %v", err)
	}
	return seq
}

// MustSetRecord stores rec and fails the test on error.
func MustSetRecord(t testing.TB, store *jobstore.Store, rec *job.Record) {
	t.Helper()

	if err := store.Set(context.Background(), rec); err != nil {
		t.Fatalf("store.Set: %v", err)
	}
}
