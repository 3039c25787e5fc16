// Package cmd implements the imagerelay command line.
package cmd

import (
	"fmt"
	"io"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bnema/imagerelay/internal/app"
	"github.com/bnema/imagerelay/internal/config"
	"github.com/bnema/imagerelay/internal/logging"
	"github.com/bnema/imagerelay/pkg/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "imagerelay",
	Short: "Relay container images into a destination repository",
	Long: `imagerelay pulls a source image, re-tags it under a destination repository,
pushes it with the configured credentials and removes the local copies.
It runs as a small HTTP service or as one-shot commands.`,
	SilenceUsage: true,
}

// Execute runs the root command with the given build information.
func Execute(buildVersion, commit, date string) error {
	version.Set(buildVersion, commit, date)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./imagerelay.yaml, $XDG_CONFIG_HOME/imagerelay, /etc/imagerelay)")
}

// bootstrap loads the configuration and sets up logging for a command.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := app.LoadConfig(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to set up logging: %w", err)
	}

	return cfg, log, nil
}

// closeKernel releases the engine connection of a one-shot command.
func closeKernel(k io.Closer, log zerolog.Logger) {
	if err := k.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close Docker client")
	}
}
