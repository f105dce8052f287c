package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/cmd"
)

// version is set at build time via ldflags.
// Default to a development version for local builds.
const version = "0.1.0"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, and build date of orbit.`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("orbit version %s\n", cmd.Version)
		fmt.Printf("  commit: %s\n", cmd.Commit)
		fmt.Printf("  built:  %s\n", cmd.Date)
	},
}
