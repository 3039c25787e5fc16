package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/imagerelay/internal/app"
	"github.com/bnema/imagerelay/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay HTTP server",
	Long:  `Serve /imagesync, /prune_images, /health, /ready and /metrics until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}

		ctx := logging.WithLogger(cmd.Context(), log)
		return app.Run(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
