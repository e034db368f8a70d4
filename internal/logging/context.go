package logging

import (
	"context"
	"log/slog"

	"recitation/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldIdentifier is the standardized key for canonical document identifiers.
	FieldIdentifier = "identifier"
	// FieldPhase is the standardized key for pipeline phase names.
	FieldPhase = "phase"
	// FieldWorker is the standardized key for worker pool slots.
	FieldWorker = "worker"
	// FieldRunID is the standardized key for per-run correlation identifiers.
	FieldRunID = "run_id"
	// FieldSeq is the standardized key for durable queue sequence numbers.
	FieldSeq = "seq"
	// FieldEventType classifies WARN/ERROR lines for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the failure classification.
	FieldErrorKind = "error_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.IdentifierFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldIdentifier, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if slot, ok := services.WorkerFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldWorker, slot))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
