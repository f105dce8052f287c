package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/registry"
)

var (
	conflictsListJSON   bool
	resolveUseClient    string
	resolveKeepSeparate bool
	resolveSkipAll      bool
)

func init() {
	conflictsListCmd.Flags().BoolVar(&conflictsListJSON, "json", false, "Output in JSON format")
	conflictsResolveCmd.Flags().StringVar(&resolveUseClient, "use-client", "",
		"resolve every conflict by taking this client's definition")
	conflictsResolveCmd.Flags().BoolVar(&resolveKeepSeparate, "keep-separate", false,
		"resolve every conflict by keeping each client's copy under a suffixed name")
	conflictsResolveCmd.Flags().BoolVar(&resolveSkipAll, "skip-all", false,
		"skip every conflict, importing none of the copies")

	conflictsCmd.AddCommand(conflictsListCmd)
	conflictsCmd.AddCommand(conflictsResolveCmd)
	rootCmd.AddCommand(conflictsCmd)
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Inspect and resolve conflicting server definitions",
	Long: `Conflicts arise when several clients define a server under the same
name but with different semantics (command, args, URL, headers, env or
working directory). Conflicted definitions are held out of the registry
until resolved.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending conflicts",
	Long: `List every unresolved conflict with the clients involved and the
fields on which their definitions disagree.

Examples:
  orbit conflicts list
  orbit conflicts list --json`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runConflictsListWithIO(os.Stdout)
	},
}

func runConflictsListWithIO(w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	conflicts, err := registry.PendingConflicts(st)
	if err != nil {
		return err
	}

	if conflictsListJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(conflicts)
	}

	if len(conflicts) == 0 {
		fmt.Fprintln(w, "No pending conflicts")
		return nil
	}

	for _, c := range conflicts {
		fmt.Fprintf(w, "%s%s%s (%s)\n", colorBold, c.Name, colorReset, c.ID)
		for _, src := range c.Sources {
			endpoint := src.Config.Command
			if src.Config.URL != "" {
				endpoint = src.Config.URL
			}
			fmt.Fprintf(w, "  %s%s%s: %s\n",
				colorCyan, registry.ClientDisplayName(src.Client), colorReset,
				truncate(endpoint, 60))
		}
		for _, d := range c.Differences {
			fmt.Fprintf(w, "  %sdiffers on %s%s\n", colorGray, d.Field, colorReset)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d pending conflict(s). Resolve with 'orbit conflicts resolve'\n", len(conflicts))
	return nil
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve pending conflicts and rebuild the registry",
	Long: `Resolve pending conflicts, then rebuild the registry with the
resolutions applied.

Without flags an interactive picker selects the winning client per
conflict. The bulk flags resolve everything the same way:

  --use-client <client>   every conflict takes that client's definition
  --keep-separate         every copy survives under a suffixed name
  --skip-all              no copy is imported

Examples:
  # Pick a winner per conflict
  orbit conflicts resolve

  # Codex wins everywhere
  orbit conflicts resolve --use-client codex`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConflictsResolveWithIO(cmd, os.Stdout)
	},
}

func runConflictsResolveWithIO(cmd *cobra.Command, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	conflicts, err := registry.PendingConflicts(st)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		fmt.Fprintln(w, "No pending conflicts")
		return nil
	}

	var resolutions []registry.Resolution
	switch {
	case resolveUseClient != "":
		resolutions = registry.BulkResolutions(conflicts, registry.BulkUseClient, resolveUseClient)
	case resolveKeepSeparate:
		resolutions = registry.BulkResolutions(conflicts, registry.BulkKeepSeparate, "")
	case resolveSkipAll:
		resolutions = registry.BulkResolutions(conflicts, registry.BulkSkipAll, "")
	default:
		resolutions, err = pickResolutions(conflicts)
		if err != nil {
			return err
		}
	}

	if len(resolutions) == 0 {
		fmt.Fprintln(w, "Nothing resolved")
		return nil
	}

	result, err := registry.Rebuild(cmd.Context(), st, logger(), registry.Adapters(adapterOptions()),
		registry.RebuildOptions{Resolutions: resolutions})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Resolved %d conflict(s), registry now holds %s%d%s server(s)\n",
		len(resolutions), colorGreen, result.ImportedCount, colorReset)
	if result.SkippedDueToConflicts > 0 {
		fmt.Fprintf(w, "%d conflict(s) still pending\n", result.SkippedDueToConflicts)
	}
	return nil
}

// pickResolutions walks each conflict interactively: the user picks the
// client whose definition wins, or aborts to leave the conflict pending.
func pickResolutions(conflicts []registry.Conflict) ([]registry.Resolution, error) {
	var resolutions []registry.Resolution

	for _, conflict := range conflicts {
		sources := conflict.Sources
		idx, err := fuzzyfinder.Find(
			sources,
			func(i int) string {
				return fmt.Sprintf("%s: %s", conflict.Name, registry.ClientDisplayName(sources[i].Client))
			},
			fuzzyfinder.WithPreviewWindow(func(i, width, height int) string {
				if i == -1 {
					return ""
				}
				cfg, err := json.MarshalIndent(sources[i].Config, "", "  ")
				if err != nil {
					return err.Error()
				}
				return fmt.Sprintf("Server: %s\nClient: %s\n\n%s",
					conflict.Name,
					registry.ClientDisplayName(sources[i].Client),
					cfg)
			}),
		)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				// Leave this conflict pending and move on.
				continue
			}
			return nil, errors.Wrap(err, "interactive selection failed")
		}

		resolutions = append(resolutions, registry.Resolution{
			ConflictID:   conflict.ID,
			ConflictName: conflict.Name,
			Action: registry.Action{
				Type:       registry.ActionMerge,
				BaseClient: sources[idx].Client,
			},
		})
	}

	return resolutions, nil
}
