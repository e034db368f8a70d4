package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"recitation/internal/config"
	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/pipeline"
	"recitation/internal/queue"
)

// Source is the queue the manager claims work from.
type Source interface {
	Pop(ctx context.Context) (*queue.Entry, error)
}

// RecordStore loads prior records for the reupload decision.
type RecordStore interface {
	Get(ctx context.Context, identifier string) (*job.Record, error)
}

// Runner executes the phases for one record.
type Runner interface {
	Run(ctx context.Context, rec *job.Record, donor *job.Record) (pipeline.Result, error)
}

// Outcome describes how one claimed entry ended.
type Outcome struct {
	Seq        int64
	Identifier string
	RunID      string
	Worker     int64
	Skipped    bool
	Halted     bool
	Completed  int
	Duration   time.Duration
	Err        error

	// Title is the published page title, set once publish-document is done.
	Title string
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// OnSuccess registers a callback for runs that finished, halted, or were
// skipped. It is called from the worker goroutine.
func OnSuccess(fn func(Outcome)) Option {
	return func(m *Manager) {
		m.onSuccess = fn
	}
}

// OnFailure registers a callback for runs that returned an error. It is
// called from the worker goroutine.
func OnFailure(fn func(Outcome)) Option {
	return func(m *Manager) {
		m.onFailure = fn
	}
}

// WithClock overrides the time source used for new records.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager coordinates queue processing across a bounded worker pool.
type Manager struct {
	cfg     *config.Config
	queue   Source
	records RecordStore
	runner  Runner
	logger  *slog.Logger
	now     func() time.Time

	workers int64
	sem     *semaphore.Weighted
	slots   chan int64

	onSuccess func(Outcome)
	onFailure func(Outcome)

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	jobsWG  sync.WaitGroup
	stats   counters
	lastErr error
}

type counters struct {
	inFlight  int
	completed int
	failed    int
	skipped   int
}

// NewManager constructs a workflow manager sized by workflow.worker_count.
func NewManager(cfg *config.Config, source Source, records RecordStore, runner Runner, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := int64(cfg.Workflow.WorkerCount)
	if workers < 1 {
		workers = 1
	}
	slots := make(chan int64, workers)
	for i := int64(1); i <= workers; i++ {
		slots <- i
	}
	m := &Manager{
		cfg:     cfg,
		queue:   source,
		records: records,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "workflow"),
		now:     time.Now,
		workers: workers,
		sem:     semaphore.NewWeighted(workers),
		slots:   slots,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
