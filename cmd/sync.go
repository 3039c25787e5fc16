package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/bnema/imagerelay/internal/app"
	"github.com/bnema/imagerelay/internal/domain"
	"github.com/bnema/imagerelay/internal/logging"
)

var syncCmd = &cobra.Command{
	Use:   "sync <image>",
	Short: "Relay one image without starting the server",
	Example: `  imagerelay sync alpine:3.18
  imagerelay sync redis@sha256:<digest>`,
	Args: cobra.ExactArgs(1),
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
		result, err := kernel.Sync().Sync(ctx, domain.SyncRequest{Image: args[0]})
		if err != nil {
			return err
		}

		return printJSON(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
