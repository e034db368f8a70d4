package article

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/services"
	"recitation/internal/services/idconv"
	"recitation/internal/stage"
)

// maxResolveBackoff caps the wait between converter attempts.
const maxResolveBackoff = 30 * time.Second

// ResolveID looks up the archive identifier for the record's identifier.
// Malformed converter answers are retried with a doubling delay; an answer
// that the article has no archive counterpart halts the run.
type ResolveID struct {
	handlerBase
	resolver Resolver
}

func (h *ResolveID) Execute(ctx context.Context, rec *job.Record) error {
	const op = "resolve identifier"
	logger := h.log(ctx)
	attempts := h.cfg.Resolver.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := h.cfg.ResolverRetryDelay()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := h.resolver.Resolve(ctx, rec.Identifier)
		if err == nil {
			if res.Kind == idconv.KindNotApplicable || res.ExternalID == "" {
				rec.NotApplicable = true
				rec.ExternalID = ""
				return services.WithHint(
					services.Wrap(services.ErrNotFound, string(h.name), op, "identifier has no open access counterpart", nil),
					h.resolver.LookupURL(rec.Identifier))
			}
			rec.NotApplicable = false
			rec.ExternalID = res.ExternalID
			logger.Info("identifier resolved",
				logging.String("external_id", res.ExternalID),
				logging.Int("attempt", attempt),
			)
			return nil
		}
		if !errors.Is(err, services.ErrTransient) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		wait := resolveBackoff(delay, attempt)
		logger.Warn("identifier lookup failed; retrying",
			logging.String(logging.FieldEventType, "resolve_retry"),
			logging.Int("attempt", attempt),
			logging.Duration("retry_in", wait),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the converter answered with a malformed response"),
		)
		if err := sleep(ctx, wait); err != nil {
			return services.Wrap(services.ErrTransient, string(h.name), op, "cancelled while waiting to retry", err)
		}
	}
	return services.WithHint(
		services.Wrap(services.ErrTransient, string(h.name), op,
			fmt.Sprintf("gave up after %d attempts", attempts), lastErr),
		h.resolver.LookupURL(rec.Identifier))
}

func (h *ResolveID) HealthCheck(context.Context) stage.Health {
	return h.health(h.resolver != nil, "identifier resolver unavailable")
}

// resolveBackoff doubles base for every attempt after the first, up to
// maxResolveBackoff.
func resolveBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	wait := base
	for i := 1; i < attempt; i++ {
		if wait >= maxResolveBackoff/2 {
			return maxResolveBackoff
		}
		wait *= 2
	}
	return min(wait, maxResolveBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
