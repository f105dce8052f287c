package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/drift"
	"github.com/thoreinstein/orbit/internal/errors"
)

func init() {
	rootCmd.AddCommand(driftCmd)
}

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Detect out-of-band edits to client config files",
	Long: `Compare each client config file against the snapshot taken on the
last scan or apply, and report files whose MCP server block changed
outside orbit. Edits elsewhere in a file never count as drift.

Exits non-zero when drift is found.

Examples:
  orbit drift`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runDriftWithIO(os.Stdout)
	},
}

func runDriftWithIO(w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	reports := drift.Check(st, nil)
	if len(reports) == 0 {
		fmt.Fprintf(w, "%sNo drift detected%s\n", colorGreen, colorReset)
		return nil
	}

	for _, r := range reports {
		if r.Missing {
			fmt.Fprintf(w, "%s%s%s: %s was removed\n",
				colorRed, r.Client, colorReset, r.Path)
			continue
		}
		fmt.Fprintf(w, "%s%s%s: MCP block of %s changed outside orbit\n",
			colorRed, r.Client, colorReset, r.Path)
	}

	fmt.Fprintln(w, "\nRun 'orbit rebuild' to re-import, or 'orbit apply' to overwrite")
	return errors.NewExitError(errors.Newf("%d file(s) drifted", len(reports)), 2)
}
