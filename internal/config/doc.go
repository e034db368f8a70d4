// Package config loads, normalizes, and validates recitation configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RECITATION_WIKI_USERNAME. The Config type centralizes every knob the daemon
// and CLI need, so data/work directories, resolver endpoints, and wiki
// credentials are discovered in one pass.
//
// A loaded Config is treated as immutable: it is built once and shared by
// pointer with the queue, record store, phase runner, and scheduler.
package config
