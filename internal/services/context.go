package services

import "context"

type contextKey string

const (
	identifierKey contextKey = "identifier"
	phaseKey      contextKey = "phase"
	workerKey     contextKey = "worker"
	runIDKey      contextKey = "run_id"
)

// WithIdentifier annotates context with the canonical document identifier.
func WithIdentifier(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, identifierKey, id)
}

// IdentifierFromContext extracts the document identifier if present.
func IdentifierFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(identifierKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the pipeline phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(phaseKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithWorker annotates context with the worker slot running the job.
func WithWorker(ctx context.Context, slot int64) context.Context {
	return context.WithValue(ctx, workerKey, slot)
}

// WorkerFromContext extracts the worker slot if present.
func WorkerFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(workerKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithRunID annotates context with the per-run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
