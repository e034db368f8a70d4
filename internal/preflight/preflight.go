package preflight

import (
	"context"
	"fmt"

	"recitation/internal/config"
	"recitation/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local preflight checks for the given config. None of
// them touch the network.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckStylesheet(cfg.Transform.Stylesheet),
		CheckCredentials(cfg),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, fromDependency(status))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func fromDependency(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: fmt.Sprintf("%s (found)", status.Command)}
	}
	detail := status.Detail
	if status.Description != "" {
		detail = fmt.Sprintf("%s; %s", detail, status.Description)
	}
	return Result{Name: status.Name, Passed: status.Optional, Detail: detail}
}
