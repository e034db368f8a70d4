// Package services defines shared utilities consumed by the pipeline phases
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp document identifiers, phase names, worker
//     slots, and run identifiers for logging.
//   - Structured error markers plus the Wrap helper, so every failure carries a
//     classification (transient, structural, licensing, ...) and phase context
//     that the runner persists and the scheduler logs.
//
// Integration clients live in subpackages (idconv, oa, xslt, mediawiki) and
// return errors tagged with these markers.
package services
