package main

import (
	"os"

	"github.com/spf13/cobra"

	"bonescan-backend/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "scanctl",
		Short:        "Run the BoneScan pipeline from the command line",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			telemetry.Configure(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newAnalyzeCmd(), newRenderCmd(), newRulesCmd())
	return root
}
