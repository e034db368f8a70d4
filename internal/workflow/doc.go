// Package workflow runs queued conversion requests on a bounded pool of
// workers.
//
// The Manager keeps one poll loop. Each iteration first takes a worker slot
// from a weighted semaphore, then claims the next queue entry; an empty queue
// or a storage error gives the slot back and sleeps. A claimed entry runs on
// its own goroutine: the prior record is loaded, the reupload resolver
// decides between skipping and running, and the phase runner does the rest.
// Jobs run on a context detached from the loop so Stop lets in-flight
// conversions finish their current run before returning.
//
// Outcomes are reported through the OnSuccess and OnFailure callbacks and
// summarized by Status; a heartbeat logs the summary periodically.
package workflow
