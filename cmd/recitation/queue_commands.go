package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"recitation/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending requests in claim order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(store *queue.Store) error {
				entries, err := store.PeekAll(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"Seq", "Identifier", "Reupload", "Enqueued"},
					buildQueueListRows(entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func buildQueueListRows(entries []queue.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		reupload := "-"
		if entry.Request.Reupload != nil {
			reupload = entry.Request.Reupload.String()
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.Seq, 10),
			entry.Request.Identifier,
			reupload,
			entry.EnqueuedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every pending request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(store *queue.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queued request(s)\n", removed)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <seq>...",
		Short: "Remove pending requests by sequence number",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seqs := make([]int64, 0, len(args))
			for _, arg := range args {
				seq, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || seq <= 0 {
					return fmt.Errorf("invalid sequence number %q", arg)
				}
				seqs = append(seqs, seq)
			}
			return ctx.withQueue(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, seq := range seqs {
					removed, err := store.Remove(cmd.Context(), seq)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Removed #%d\n", seq)
					} else {
						fmt.Fprintf(out, "#%d not found\n", seq)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "Integrity: %s\n", health.Integrity)
				fmt.Fprintf(out, "Claim order: %s\n", health.Mode)
				fmt.Fprintf(out, "Pending: %d\n", health.Pending)
				return nil
			})
		},
	}
}
