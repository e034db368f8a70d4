// Package preflight provides readiness checks for the filesystem paths,
// tools, and credentials recitation depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before starting the workflow and refuses to
//     start when a check fails.
//   - The CLI "recitation status" command renders every result, and with
//     --online also probes the configured HTTP endpoints.
package preflight
