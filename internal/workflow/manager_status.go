package workflow

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	Workers   int64
	InFlight  int
	Completed int
	Failed    int
	Skipped   int
	LastError string
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := StatusSummary{
		Running:   m.running,
		Workers:   m.workers,
		InFlight:  m.stats.inFlight,
		Completed: m.stats.completed,
		Failed:    m.stats.failed,
		Skipped:   m.stats.skipped,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	return summary
}

func (m *Manager) track(fn func(*counters)) {
	m.mu.Lock()
	fn(&m.stats)
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
