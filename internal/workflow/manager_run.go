package workflow

import (
	"context"
	"errors"
	"time"

	"recitation/internal/logging"
	"recitation/internal/queue"
	"recitation/internal/services"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.queue == nil || m.records == nil || m.runner == nil {
		m.mu.Unlock()
		return errors.New("workflow collaborators not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.loopWG.Add(2)
	m.mu.Unlock()

	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.Int64("workers", m.workers),
	)
	go m.pollLoop(runCtx)
	go m.heartbeatLoop(runCtx)
	return nil
}

// Stop stops polling and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.loopWG.Wait()
	m.jobsWG.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stop"))
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer m.loopWG.Done()
	for {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return
		}
		entry, err := m.queue.Pop(ctx)
		if err != nil {
			m.sem.Release(1)
			if ctx.Err() != nil {
				return
			}
			m.handlePopError(ctx, err)
			continue
		}
		if entry == nil {
			m.sem.Release(1)
			m.wait(ctx, m.cfg.PollInterval())
			continue
		}

		slot := <-m.slots
		m.jobsWG.Add(1)
		m.track(func(c *counters) { c.inFlight++ })
		go m.process(ctx, entry, slot)
	}
}

func (m *Manager) handlePopError(ctx context.Context, err error) {
	m.setLastError(err)
	hint := services.Details(err).Hint
	if hint == "" {
		hint = "check queue database access"
	}
	logging.ErrorWithContext(m.logger, "failed to claim next queue entry", "queue_pop_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, hint),
	)
	m.wait(ctx, m.cfg.ErrorRetryInterval())
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (m *Manager) process(ctx context.Context, entry *queue.Entry, slot int64) {
	defer func() {
		m.slots <- slot
		m.sem.Release(1)
		m.jobsWG.Done()
	}()
	outcome := m.runEntry(ctx, entry, slot)
	m.report(outcome)
}
