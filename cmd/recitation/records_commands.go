package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"recitation/internal/job"
	"recitation/internal/jobstore"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect per-identifier progress",
	}
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records with phase progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRecords(func(store *jobstore.Store) error {
				summaries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, summaries)
				}
				if len(summaries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No records")
					return nil
				}
				table := renderTable(
					[]string{"Identifier", "Progress", "Failed Phase", "Updated"},
					buildRecordRows(summaries),
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func buildRecordRows(summaries []jobstore.Summary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		failed := s.FailedPhase
		if failed == "" {
			failed = "-"
		}
		rows = append(rows, []string{
			s.Identifier,
			fmt.Sprintf("%d/%d", s.Completed, s.Total),
			failed,
			s.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <doi>",
		Short: "Show the phase record for one identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := job.CanonicalIdentifier(args[0])
			if err != nil {
				return err
			}
			return ctx.withRecords(func(store *jobstore.Store) error {
				rec, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("no record for %s", id)
				}
				if asJSON {
					return writeJSON(cmd, rec)
				}
				renderRecord(cmd, rec)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full record as JSON")
	return cmd
}

func renderRecord(cmd *cobra.Command, rec *job.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Identifier: %s\n", rec.Identifier)
	fmt.Fprintf(out, "Run: %s\n", rec.RunID)
	fmt.Fprintf(out, "Progress: %d/%d\n", rec.CompletedCount(), len(job.PhaseOrder))
	if rec.ExternalID != "" {
		fmt.Fprintf(out, "PMC: %s\n", rec.ExternalID)
	}
	if rec.NotApplicable {
		fmt.Fprintln(out, "Not open access")
	}
	if rec.PublishedTitle != "" {
		fmt.Fprintf(out, "Published: %s\n", rec.PublishedTitle)
	}
	if rec.RedirectTitle != "" {
		fmt.Fprintf(out, "Redirect: %s\n", rec.RedirectTitle)
	}

	rows := make([][]string, 0, len(rec.Phases))
	for i, phase := range rec.Phases {
		completed := "-"
		if phase.CompletedAt != nil {
			completed = phase.CompletedAt.Local().Format(time.DateTime)
		}
		detail := phase.Error
		if phase.ErrorKind != "" {
			detail = fmt.Sprintf("[%s] %s", phase.ErrorKind, detail)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), string(phase.Name), string(phase.Status), completed, detail})
	}
	fmt.Fprint(out, renderTable(
		[]string{"#", "Phase", "Status", "Completed", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
