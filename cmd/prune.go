package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/imagerelay/internal/app"
	"github.com/bnema/imagerelay/internal/logging"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune unused images older than prune.until",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}

		kernel, err := app.NewKernel(cfg, log)
		if err != nil {
			return err
		}
		defer closeKernel(kernel, log)

		ctx := logging.WithLogger(cmd.Context(), log)
		report, err := kernel.Images().Prune(ctx)
		if err != nil {
			return err
		}

		return printJSON(cmd, report)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
