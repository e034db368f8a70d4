package queue

import (
	"time"

	"recitation/internal/job"
)

// Mode selects which end of the queue Pop claims from.
type Mode string

const (
	ModeFIFO Mode = "fifo"
	ModeLIFO Mode = "lifo"
)

// Request is the unit of work a producer enqueues. A nil Reupload means no
// selector was supplied.
type Request struct {
	Identifier string        `json:"identifier"`
	Reupload   *job.Selector `json:"reupload,omitempty"`
}

// Entry is a claimed or peeked request with its queue metadata.
type Entry struct {
	Seq        int64
	Request    Request
	EnqueuedAt time.Time
}

// HealthSummary reports diagnostic information about the queue database.
type HealthSummary struct {
	DBPath        string
	SchemaVersion int
	Integrity     string
	Pending       int
	Mode          Mode
}
