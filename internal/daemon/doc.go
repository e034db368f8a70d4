// Package daemon coordinates the long-running recitation process.
//
// It ties configuration, the queue and record stores, and the workflow
// manager into a single lifecycle with flock-based locking to prevent
// multiple instances from draining the same queue. Keep orchestration logic
// here: phase behavior lives in the article and pipeline packages while the
// daemon focuses on startup, shutdown, and status.
package daemon
