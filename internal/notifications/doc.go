// Package notifications delivers daemon events to an ntfy topic.
//
// NewService returns a no-op implementation when notifications.ntfy_topic is
// empty, so callers never need to check whether alerts are enabled. The daemon
// wires NotifyPublished and NotifyError to the workflow manager's outcome
// callbacks.
package notifications
