package main

import (
	"github.com/spf13/cobra"

	"recitation/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var development bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the import daemon in the foreground",
		Long: "Run the import daemon until SIGINT or SIGTERM. Only one daemon may run per data\n" +
			"directory; in-flight imports finish before the process exits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.logLevel(),
				Development: development,
			})
		},
	}

	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")
	return cmd
}
