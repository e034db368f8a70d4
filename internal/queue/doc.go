// Package queue persists pending conversion requests in SQLite.
//
// The Store is a durable FIFO (or LIFO) queue: Push appends a request under a
// fresh monotonically increasing sequence number and returns once committed;
// Pop claims and deletes exactly one entry in a single DELETE ... RETURNING
// statement, so concurrent pollers never receive the same entry twice. An empty
// queue is reported as a nil entry, never as an error.
//
// Requests are serialized to JSON at this boundary; callers only ever see the
// typed Request and Entry values.
package queue
