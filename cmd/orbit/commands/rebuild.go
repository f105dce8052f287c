package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/registry"
)

var (
	rebuildForceImportAll  bool
	rebuildResolutionsFile string
)

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildForceImportAll, "force-import-all", false,
		"import every discovered definition, bypassing conflict detection")
	rebuildCmd.Flags().StringVar(&rebuildResolutionsFile, "resolutions", "",
		"JSON file with conflict resolutions to apply during the rebuild")
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the registry from client config files",
	Long: `Wipe the registry and reconstruct it from a fresh scan of every
client's config file.

Definitions that share a name but differ semantically become pending
conflicts and are excluded from the import until resolved with
'orbit conflicts resolve'. Identical definitions found in several clients
collapse into one server with a binding per client.

Examples:
  # Standard rebuild, conflicts left pending
  orbit rebuild

  # Import everything, conflicts included
  orbit rebuild --force-import-all

  # Rebuild with saved resolutions
  orbit rebuild --resolutions resolutions.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRebuildWithIO(cmd, os.Stdout)
	},
}

func runRebuildWithIO(cmd *cobra.Command, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	var resolutions []registry.Resolution
	if rebuildResolutionsFile != "" {
		content, err := os.ReadFile(rebuildResolutionsFile)
		if err != nil {
			return errors.Wrap(err, "reading resolutions file")
		}
		if err := json.Unmarshal(content, &resolutions); err != nil {
			return errors.Wrap(err, "parsing resolutions file")
		}
	}

	result, err := registry.Rebuild(cmd.Context(), st, logger(), registry.Adapters(adapterOptions()),
		registry.RebuildOptions{
			Resolutions:    resolutions,
			ForceImportAll: rebuildForceImportAll,
		})
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "%swarning:%s %s\n", colorRed, colorReset, warning)
	}

	fmt.Fprintf(w, "Imported %s%d%s server(s)\n", colorGreen, result.ImportedCount, colorReset)
	if result.SkippedDueToConflicts > 0 {
		fmt.Fprintf(w, "%s%d conflict(s) pending%s, %d definition group(s) skipped\n",
			colorRed, len(result.Conflicts), colorReset, result.SkippedDueToConflicts)
		fmt.Fprintln(w, "Run 'orbit conflicts list' to inspect them")
	}
	return nil
}
