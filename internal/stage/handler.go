package stage

import (
	"context"

	"recitation/internal/job"
)

// Handler describes the contract the phase runner needs from each phase.
type Handler interface {
	Execute(context.Context, *job.Record) error
	HealthCheck(context.Context) Health
}

// Func adapts a plain function into a Handler that always reports healthy.
type Func struct {
	Name string
	Run  func(context.Context, *job.Record) error
}

// Execute calls f.Run when set.
func (f Func) Execute(ctx context.Context, rec *job.Record) error {
	if f.Run == nil {
		return nil
	}
	return f.Run(ctx, rec)
}

// HealthCheck reports the function as ready.
func (f Func) HealthCheck(context.Context) Health {
	return Healthy(f.Name)
}
