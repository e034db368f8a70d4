package workflow

import (
	"context"
	"time"

	"recitation/internal/logging"
)

// heartbeatLoop logs the status summary every workflow.heartbeat_interval
// until ctx is cancelled.
func (m *Manager) heartbeatLoop(ctx context.Context) {
	defer m.loopWG.Done()
	interval := m.cfg.HeartbeatInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := logging.NewComponentLogger(m.logger, "workflow-heartbeat")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Status()
			logger.Info("workflow heartbeat",
				logging.String(logging.FieldEventType, "heartbeat"),
				logging.Int("in_flight", s.InFlight),
				logging.Int("completed", s.Completed),
				logging.Int("failed", s.Failed),
				logging.Int("skipped", s.Skipped),
				logging.String("last_error", s.LastError),
			)
		}
	}
}
