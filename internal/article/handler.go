package article

import (
	"context"
	"log/slog"

	"recitation/internal/config"
	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/stage"
)

type handlerBase struct {
	cfg    *config.Config
	name   job.PhaseName
	logger *slog.Logger
}

func (h handlerBase) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, h.logger)
}

func (h handlerBase) health(ready bool, detail string) stage.Health {
	if h.cfg == nil {
		return stage.Unhealthy(string(h.name), "configuration unavailable")
	}
	if !ready {
		return stage.Unhealthy(string(h.name), detail)
	}
	return stage.Healthy(string(h.name))
}
