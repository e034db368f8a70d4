// Package reupload decides whether a queued request runs, which asset
// categories it regenerates, and which prior record donates the rest.
//
// Resolve is evaluated once per claimed queue entry. Merge splices donor
// bundles into the current record after media upload, before any phase reads
// the bundles to rewrite references.
package reupload
