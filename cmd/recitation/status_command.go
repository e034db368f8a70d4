package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"recitation/internal/config"
	"recitation/internal/jobstore"
	"recitation/internal/preflight"
	"recitation/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and preflight status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			lines = append(lines, daemonStatusLine(cfg, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Storage", colorize)...)
			lines = append(lines, storageStatusLines(cmd.Context(), ctx, colorize)...)

			results := preflight.RunAll(cmd.Context(), cfg)
			if online {
				results = append(results, preflight.CheckEndpoints(cmd.Context(), cfg)...)
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "Also probe the resolver, archive, and wiki endpoints")
	return cmd
}

// daemonStatusLine probes the daemon lock. Holding it briefly means no daemon runs.
func daemonStatusLine(cfg *config.Config, colorize bool) string {
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return renderStatusLine("Daemon", statusWarn, err.Error(), colorize)
	}
	if locked {
		_ = lock.Unlock()
		return renderStatusLine("Daemon", statusInfo, "not running", colorize)
	}
	return renderStatusLine("Daemon", statusOK, "running ("+cfg.LockPath()+")", colorize)
}

func storageStatusLines(ctx context.Context, cmdCtx *commandContext, colorize bool) []string {
	var lines []string
	err := cmdCtx.withQueue(func(store *queue.Store) error {
		health, err := store.Health(ctx)
		if err != nil {
			return err
		}
		kind := statusOK
		if health.Integrity != "ok" {
			kind = statusError
		}
		lines = append(lines, renderStatusLine("Queue", kind,
			fmt.Sprintf("%d pending, %s, integrity %s", health.Pending, health.Mode, health.Integrity), colorize))
		return nil
	})
	if err != nil {
		lines = append(lines, renderStatusLine("Queue", statusError, err.Error(), colorize))
	}

	err = cmdCtx.withRecords(func(store *jobstore.Store) error {
		summaries, err := store.List(ctx)
		if err != nil {
			return err
		}
		var done, failed int
		for _, s := range summaries {
			switch {
			case s.FailedPhase != "":
				failed++
			case s.Completed == s.Total:
				done++
			}
		}
		lines = append(lines, renderStatusLine("Records", statusInfo,
			fmt.Sprintf("%d total, %d complete, %d failed", len(summaries), done, failed), colorize))
		return nil
	})
	if err != nil {
		lines = append(lines, renderStatusLine("Records", statusError, err.Error(), colorize))
	}
	return lines
}
