// Package main hosts the recitation CLI entrypoint and command graph.
//
// The Cobra-based command tree submits identifiers to the durable queue,
// inspects queued requests and per-identifier records, runs the daemon in the
// foreground, and scaffolds configuration. Commands talk to the SQLite stores
// directly; the daemon is the only process that claims work.
//
// Keep this package lean: add new functionality in the internal packages
// first, then surface it through dedicated commands or flags here.
package main
