package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"recitation/internal/config"
	"recitation/internal/jobstore"
	"recitation/internal/logging"
	"recitation/internal/queue"
	"recitation/internal/workflow"
)

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    *queue.Store
	records  *jobstore.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	Workflow      workflow.StatusSummary
	QueueDepth    int
	QueueDBPath   string
	RecordsDBPath string
	LockFilePath  string
}

// New constructs a daemon around already opened stores and manager.
func New(cfg *config.Config, queueStore *queue.Store, records *jobstore.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || queueStore == nil || records == nil || wf == nil {
		return nil, errors.New("daemon requires config, queue store, record store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		queue:    queueStore,
		records:  records,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another recitation daemon holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("recitation daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop stops claiming work, waits for in-flight jobs, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("recitation daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon and closes both stores.
func (d *Daemon) Close() error {
	d.Stop()
	return errors.Join(d.queue.Close(), d.records.Close())
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	depth, err := d.queue.Len(ctx)
	if err != nil {
		d.logger.Warn("failed to read queue depth", logging.Error(err))
	}
	return Status{
		Running:       d.running.Load(),
		Workflow:      d.workflow.Status(),
		QueueDepth:    depth,
		QueueDBPath:   d.cfg.QueuePath(),
		RecordsDBPath: d.cfg.RecordsPath(),
		LockFilePath:  d.lockPath,
	}
}
