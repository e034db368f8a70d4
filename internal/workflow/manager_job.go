package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/queue"
	"recitation/internal/reupload"
	"recitation/internal/services"
)

// runEntry resolves and runs one claimed entry. The job context is detached
// from ctx so that stopping the manager never interrupts a phase.
func (m *Manager) runEntry(ctx context.Context, entry *queue.Entry, slot int64) (outcome Outcome) {
	started := m.now()
	outcome = Outcome{Seq: entry.Seq, Identifier: entry.Request.Identifier, RunID: uuid.NewString(), Worker: slot}

	jobCtx := context.WithoutCancel(ctx)
	jobCtx = services.WithRunID(jobCtx, outcome.RunID)
	jobCtx = services.WithWorker(jobCtx, slot)

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.Err = &services.Error{Operation: "run job", Message: fmt.Sprintf("panic: %v", recovered)}
		}
		outcome.Duration = m.now().Sub(started)
	}()

	identifier, err := job.CanonicalIdentifier(entry.Request.Identifier)
	if err != nil {
		outcome.Err = services.Wrap(services.ErrValidation, "", "canonicalize identifier", entry.Request.Identifier, err)
		return outcome
	}
	outcome.Identifier = identifier
	jobCtx = services.WithIdentifier(jobCtx, identifier)
	logger := logging.WithContext(jobCtx, m.logger)

	prior, err := m.records.Get(jobCtx, identifier)
	if err != nil {
		outcome.Err = priorRecordError(err)
		return outcome
	}
	decision, err := reupload.Resolve(prior, entry.Request.Reupload)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if decision.Action == reupload.ActionSkip {
		logger.Info("identifier already processed; skipping",
			logging.String(logging.FieldEventType, "job_skipped"),
			logging.Int64(logging.FieldSeq, entry.Seq),
		)
		outcome.Skipped = true
		return outcome
	}

	rec := job.NewRecord(identifier, decision.Regenerate, m.now())
	rec.RunID = outcome.RunID
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int64(logging.FieldSeq, entry.Seq),
		logging.String("regenerate", decision.Regenerate.String()),
		logging.Bool("reupload", decision.Donor != nil),
	)
	result, err := m.runner.Run(jobCtx, rec, decision.Donor)
	outcome.Halted = result.Halted
	outcome.Completed = result.Completed
	outcome.Title = rec.PublishedTitle
	outcome.Err = err
	return outcome
}

// priorRecordError keeps the store's classification. Unclassified failures
// are treated as transient storage errors.
func priorRecordError(err error) error {
	if services.Kind(err) != services.KindUnknown {
		return err
	}
	return services.Wrap(services.ErrTransient, "", "load prior record", "", err)
}

func (m *Manager) report(outcome Outcome) {
	ctx := services.WithIdentifier(context.Background(), outcome.Identifier)
	ctx = services.WithRunID(ctx, outcome.RunID)
	ctx = services.WithWorker(ctx, outcome.Worker)
	logger := logging.WithContext(ctx, m.logger)

	if outcome.Err != nil {
		m.setLastError(outcome.Err)
		m.track(func(c *counters) {
			c.inFlight--
			c.failed++
		})
		details := services.Details(outcome.Err)
		logger.Error("job failed",
			logging.String(logging.FieldEventType, "job_failed"),
			logging.Int64(logging.FieldSeq, outcome.Seq),
			logging.String(logging.FieldPhase, details.Phase),
			logging.String(logging.FieldErrorKind, details.Kind),
			logging.String(logging.FieldErrorHint, details.Hint),
			logging.Int("completed_phases", outcome.Completed),
			logging.Error(outcome.Err),
		)
		m.notify("failure", m.onFailure, outcome, logger)
		return
	}

	m.track(func(c *counters) {
		c.inFlight--
		if outcome.Skipped {
			c.skipped++
		} else {
			c.completed++
		}
	})
	if !outcome.Skipped {
		logger.Info("job finished",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Int64(logging.FieldSeq, outcome.Seq),
			logging.Bool("halted", outcome.Halted),
			logging.Int("completed_phases", outcome.Completed),
			logging.Duration("job_duration", outcome.Duration),
		)
	}
	m.notify("success", m.onSuccess, outcome, logger)
}

// notify runs an outcome callback. A panicking callback is logged and
// otherwise ignored.
func (m *Manager) notify(kind string, fn func(Outcome), outcome Outcome, logger *slog.Logger) {
	if fn == nil {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			logging.ErrorWithContext(logger, "outcome callback panicked", "callback_panic",
				logging.String("callback", kind),
				logging.Int64(logging.FieldSeq, outcome.Seq),
				logging.Any("panic", recovered),
				logging.String(logging.FieldErrorHint, "fix the "+kind+" callback; the job outcome is unaffected"),
			)
		}
	}()
	fn(outcome)
}
