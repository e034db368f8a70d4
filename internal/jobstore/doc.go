// Package jobstore persists job records keyed by canonical identifier.
//
// Set overwrites the whole record in a single statement and Get reads it back,
// so concurrent readers never observe a partially written record. There is no
// partial-update API: callers read, mutate in memory, and write back. Records
// are validated against an embedded JSON Schema and the phase-order
// invariants on every write and read.
package jobstore
