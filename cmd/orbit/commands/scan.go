package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/registry"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan client config files for MCP servers",
	Long: `Scan every client's config file and report the MCP server definitions
found, without changing the registry.

Snapshots of each scanned file are recorded for drift detection. Use
'orbit rebuild' to actually import the discovered servers.

Examples:
  # See what each client currently defines
  orbit scan`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScanWithIO(cmd, os.Stdout)
	},
}

func runScanWithIO(cmd *cobra.Command, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	result, err := registry.Scan(cmd.Context(), st, logger(), registry.Adapters(adapterOptions()))
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "%swarning:%s %s\n", colorRed, colorReset, warning)
	}

	byClient := map[string]int{}
	for _, c := range result.Candidates {
		byClient[c.Client]++
	}
	for _, snap := range result.Snapshots {
		fmt.Fprintf(w, "%s%s%s: %d server(s) in %s\n",
			colorCyan, snap.Client, colorReset, byClient[snap.Client], snap.Path)
	}
	if len(result.Snapshots) == 0 {
		fmt.Fprintln(w, "No client config files found")
	}

	fmt.Fprintf(w, "\n%d candidate definition(s) discovered\n", len(result.Candidates))
	return nil
}
