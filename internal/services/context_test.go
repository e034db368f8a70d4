package services_test

import (
	"context"
	"testing"

	"recitation/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithIdentifier(ctx, "10.1/example")
	ctx = services.WithPhase(ctx, "fetch-archive")
	ctx = services.WithWorker(ctx, 3)
	ctx = services.WithRunID(ctx, "run-123")

	if id, ok := services.IdentifierFromContext(ctx); !ok || id != "10.1/example" {
		t.Fatalf("unexpected identifier: %v %v", id, ok)
	}
	if phase, ok := services.PhaseFromContext(ctx); !ok || phase != "fetch-archive" {
		t.Fatalf("unexpected phase: %v %v", phase, ok)
	}
	if slot, ok := services.WorkerFromContext(ctx); !ok || slot != 3 {
		t.Fatalf("unexpected worker: %v %v", slot, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestPhaseBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPhase(ctx, "")
	if _, ok := services.PhaseFromContext(ctx); ok {
		t.Fatal("expected no phase value")
	}
}
