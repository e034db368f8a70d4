// Package pipeline runs the fixed, ordered phase list for a single job record.
//
// After every successful phase the record is marked done and checkpointed
// before the next phase starts, so an interrupted run leaves a record whose
// completed prefix is exactly the work that was persisted. A failing phase is
// recorded as failed and stops the run; the runner never retries.
//
// Two phases get special handling: a not-found answer from resolve-id ends the
// run cleanly, and the donor splice runs immediately after upload-media.
package pipeline
