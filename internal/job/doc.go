// Package job defines the persisted pipeline state for one document
// identifier: the ordered phase statuses, the per-category asset bundles, the
// generated text, and the working fields the phases hand to each other.
//
// Records are plain data. The phase runner mutates a record in memory and the
// record store persists it whole after every completed phase.
package job
