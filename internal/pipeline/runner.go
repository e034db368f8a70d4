package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"recitation/internal/config"
	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/reupload"
	"recitation/internal/services"
	"recitation/internal/stage"
)

// PhaseSet holds one handler per phase. Every field is required.
type PhaseSet struct {
	ResolveID                 stage.Handler
	FetchArchive              stage.Handler
	ExtractArchive            stage.Handler
	LocateSourceDocument      stage.Handler
	ExtractMetadata           stage.Handler
	TransformToMarkup         stage.Handler
	ExtractDocumentText       stage.Handler
	UploadMedia               stage.Handler
	RewriteMediaReferences    stage.Handler
	RewriteSupplementaryLinks stage.Handler
	PublishDocument           stage.Handler
	PublishRedirect           stage.Handler
}

func (p PhaseSet) ordered() []step {
	return []step{
		{job.PhaseResolveID, p.ResolveID},
		{job.PhaseFetchArchive, p.FetchArchive},
		{job.PhaseExtractArchive, p.ExtractArchive},
		{job.PhaseLocateSourceDocument, p.LocateSourceDocument},
		{job.PhaseExtractMetadata, p.ExtractMetadata},
		{job.PhaseTransformToMarkup, p.TransformToMarkup},
		{job.PhaseExtractDocumentText, p.ExtractDocumentText},
		{job.PhaseUploadMedia, p.UploadMedia},
		{job.PhaseRewriteMediaReferences, p.RewriteMediaReferences},
		{job.PhaseRewriteSupplementaryLinks, p.RewriteSupplementaryLinks},
		{job.PhasePublishDocument, p.PublishDocument},
		{job.PhasePublishRedirect, p.PublishRedirect},
	}
}

type step struct {
	name    job.PhaseName
	handler stage.Handler
}

// Checkpointer persists the record after each phase transition.
type Checkpointer interface {
	Set(ctx context.Context, rec *job.Record) error
}

// Result summarizes a run that did not fail.
type Result struct {
	// Halted is true when resolve-id reported the identifier has no external
	// counterpart and the remaining phases were skipped.
	Halted    bool
	Completed int
	Duration  time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the base logger. Context fields are added per phase.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner executes the phase list against one record at a time. It holds no
// per-run state and is safe for concurrent use by multiple workers.
type Runner struct {
	cfg        *config.Config
	steps      []step
	checkpoint Checkpointer
	logger     *slog.Logger
	now        func() time.Time
}

// New validates the phase set and builds a Runner.
func New(cfg *config.Config, phases PhaseSet, checkpoint Checkpointer, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "build runner", "config is required", nil)
	}
	if checkpoint == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "build runner", "checkpointer is required", nil)
	}
	steps := phases.ordered()
	for _, s := range steps {
		if s.handler == nil {
			return nil, services.Wrap(services.ErrConfiguration, string(s.name), "build runner", "handler is required", nil)
		}
	}
	r := &Runner{
		cfg:        cfg,
		steps:      steps,
		checkpoint: checkpoint,
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "pipeline")
	return r, nil
}

// Run executes every phase that is not yet done, in canonical order. donor is
// the prior record used to splice asset categories the run does not
// regenerate; it may be nil when everything regenerates.
func (r *Runner) Run(ctx context.Context, rec *job.Record, donor *job.Record) (Result, error) {
	if rec == nil {
		return Result{}, services.Wrap(services.ErrValidation, "", "run pipeline", "record is nil", nil)
	}
	if len(rec.Phases) != len(job.PhaseOrder) {
		rec.Phases = job.NewPhases()
	}
	if err := os.MkdirAll(r.cfg.Paths.WorkDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "", "run pipeline", "create work directory", err)
	}

	started := r.now()
	ctx = services.WithIdentifier(ctx, rec.Identifier)
	for _, s := range r.steps {
		if rec.IsDone(s.name) {
			continue
		}
		phaseCtx := services.WithPhase(ctx, string(s.name))
		logger := logging.WithContext(phaseCtx, r.logger)
		phaseStart := r.now()
		logger.Debug("phase started", logging.String(logging.FieldEventType, "phase_start"))

		err := r.execute(phaseCtx, s, rec)
		if err == nil && s.name == job.PhaseUploadMedia {
			err = splice(rec, donor)
		}
		if err != nil {
			if s.name == job.PhaseResolveID && errors.Is(err, services.ErrNotFound) {
				if cpErr := r.markDone(phaseCtx, rec, s.name); cpErr != nil {
					return Result{Completed: rec.CompletedCount()}, cpErr
				}
				logger.Info("identifier has no open access counterpart; halting",
					logging.String(logging.FieldEventType, "pipeline_halted"),
					logging.String("reason", services.Details(err).Message),
				)
				return Result{Halted: true, Completed: rec.CompletedCount(), Duration: r.now().Sub(started)}, nil
			}
			return Result{Completed: rec.CompletedCount()}, r.fail(phaseCtx, logger, rec, s.name, err)
		}

		if err := r.markDone(phaseCtx, rec, s.name); err != nil {
			return Result{Completed: rec.CompletedCount()}, err
		}
		logger.Info("phase completed",
			logging.String(logging.FieldEventType, "phase_complete"),
			logging.Duration("phase_duration", r.now().Sub(phaseStart)),
		)
	}
	return Result{Completed: rec.CompletedCount(), Duration: r.now().Sub(started)}, nil
}

func (r *Runner) execute(ctx context.Context, s step, rec *job.Record) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &services.Error{
				Phase:     string(s.name),
				Operation: "execute",
				Message:   fmt.Sprintf("panic: %v", recovered),
			}
		}
	}()
	if idx := job.PhaseIndex(s.name); idx > 0 && !rec.IsDone(job.PhaseOrder[idx-1]) {
		return services.Wrap(services.ErrStructural, string(s.name), "execute",
			fmt.Sprintf("previous phase %s is not done", job.PhaseOrder[idx-1]), nil)
	}
	return s.handler.Execute(ctx, rec)
}

func splice(rec, donor *job.Record) error {
	merged, err := reupload.Merge(rec, donor, rec.Regenerate)
	if err != nil {
		return err
	}
	*rec = *merged
	return nil
}

func (r *Runner) markDone(ctx context.Context, rec *job.Record, name job.PhaseName) error {
	if err := rec.MarkDone(name, r.now()); err != nil {
		return services.Wrap(services.ErrStructural, string(name), "mark done", "", err)
	}
	if err := r.checkpoint.Set(ctx, rec); err != nil {
		return services.InPhase(fmt.Errorf("checkpoint: %w", err), string(name))
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, rec *job.Record, name job.PhaseName, cause error) error {
	err := services.InPhase(cause, string(name))
	details := services.Details(err)
	if markErr := rec.MarkFailed(name, err.Error(), details.Kind); markErr != nil {
		logger.Warn("could not mark phase failed", logging.Error(markErr))
	}
	if cpErr := r.checkpoint.Set(ctx, rec); cpErr != nil {
		logging.WarnWithContext(logger, "failed to persist phase failure", "checkpoint_failed",
			logging.Error(cpErr),
			logging.String(logging.FieldErrorHint, "inspect the record store; the failure is still reported to the caller"),
		)
	}
	return err
}

// HealthCheck reports the readiness of every phase handler in order.
func (r *Runner) HealthCheck(ctx context.Context) []stage.Health {
	out := make([]stage.Health, 0, len(r.steps))
	for _, s := range r.steps {
		health := s.handler.HealthCheck(ctx)
		if health.Name == "" {
			health.Name = string(s.name)
		}
		out = append(out, health)
	}
	return out
}
