package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"recitation/internal/job"
	"recitation/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var reupload []string
	var all bool

	cmd := &cobra.Command{
		Use:   "submit <doi>...",
		Short: "Queue identifiers for import",
		Long: "Queue one or more DOIs for import. Without --reupload an identifier that already\n" +
			"completed is skipped; --reupload images,equations,tables,text regenerates the\n" +
			"named parts and reuses the rest from the previous run.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := submitSelector(reupload, all)
			if err != nil {
				return err
			}
			requests := make([]queue.Request, 0, len(args))
			for _, arg := range args {
				id, err := job.CanonicalIdentifier(arg)
				if err != nil {
					return fmt.Errorf("%q: %w", arg, err)
				}
				requests = append(requests, queue.Request{Identifier: id, Reupload: sel})
			}
			return ctx.withQueue(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, req := range requests {
					seq, err := store.Push(cmd.Context(), req)
					if err != nil {
						return err
					}
					if req.Reupload != nil {
						fmt.Fprintf(out, "Queued %s as #%d (reupload %s)\n", req.Identifier, seq, req.Reupload.String())
						continue
					}
					fmt.Fprintf(out, "Queued %s as #%d\n", req.Identifier, seq)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&reupload, "reupload", nil, "Parts to regenerate: images, equations, tables, text")
	cmd.Flags().BoolVar(&all, "all", false, "Regenerate every part of a previously completed import")
	return cmd
}

func submitSelector(tokens []string, all bool) (*job.Selector, error) {
	if all {
		if len(tokens) > 0 {
			return nil, errors.New("--all and --reupload are mutually exclusive")
		}
		sel := job.AllCategories()
		return &sel, nil
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	sel, err := job.ParseSelector(tokens...)
	if err != nil {
		return nil, err
	}
	if sel.IsEmpty() {
		return nil, errors.New("--reupload requires at least one of images, equations, tables, text")
	}
	return &sel, nil
}
