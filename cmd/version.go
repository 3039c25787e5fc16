package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/imagerelay/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the imagerelay version, commit hash, and build date.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		info := version.Get()
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Fprintln(out, info.Version)
			return
		}
		fmt.Fprintf(out, "imagerelay %s\n", info.Version)
		fmt.Fprintf(out, "Commit: %s\n", info.Commit)
		fmt.Fprintf(out, "Built: %s\n", info.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Show only version number")
}
