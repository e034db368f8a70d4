// Package logging assembles structured slog loggers and formatting helpers used
// across recitation.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so phase code automatically
// tags log lines with the document identifier, phase, worker slot, and run id.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
