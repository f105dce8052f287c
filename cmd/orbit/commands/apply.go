package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/apply"
	"github.com/thoreinstein/orbit/internal/backup"
	"github.com/thoreinstein/orbit/internal/diff"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/paths"
)

var applyDryRun bool

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false,
		"show what would be written without touching any file")
	rootCmd.AddCommand(applyCmd)
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Push the registry state out to every client",
	Long: `Rewrite each bound client's config file from the registry.

Every affected file is backed up first. If writing any client fails, all
files written in the batch are restored from their backups, so the clients
never end up half-applied.

Examples:
  # Apply the registry to all bound clients
  orbit apply

  # Preview the writes
  orbit apply --dry-run`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApplyWithIO(cmd, os.Stdout)
	},
}

func runApplyWithIO(cmd *cobra.Command, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	orch := apply.New(st, logger(), backup.NewManager(paths.BackupDir()), adapterOptions())

	// Every bound client gets rewritten; the diff against an empty state
	// yields exactly the clients with at least one binding.
	d := diff.Calculate(diff.State{}, diff.State{Bindings: st.Bindings()})
	if len(d.Entries) == 0 {
		fmt.Fprintln(w, "Nothing to apply: no bindings in the registry")
		return nil
	}

	if applyDryRun {
		clients := make([]string, 0, len(d.Entries))
		for _, e := range d.Entries {
			clients = append(clients, e.Client)
		}
		previews, fileErrors := orch.DryRun(cmd.Context(), clients)
		for _, p := range previews {
			fmt.Fprintf(w, "%s%s%s would write %s:\n%s\n",
				colorCyan, p.Client, colorReset, p.Path, p.After)
		}
		for _, fe := range fileErrors {
			fmt.Fprintf(w, "%serror:%s %s: %v\n", colorRed, colorReset, fe.Client, fe.Err)
		}
		if len(fileErrors) > 0 {
			return errors.Newf("%d client(s) failed to compile", len(fileErrors))
		}
		return nil
	}

	result := orch.Run(cmd.Context(), d)

	for _, path := range result.FilesChanged {
		fmt.Fprintf(w, "  %supdated%s %s\n", colorGreen, colorReset, path)
	}
	for _, fe := range result.Errors {
		fmt.Fprintf(w, "  %serror%s %s: %v\n", colorRed, colorReset, fe.Client, fe.Err)
	}

	if !result.Success {
		if result.RolledBack {
			fmt.Fprintln(w, "Apply failed; all files restored from backups")
		}
		return errors.Newf("apply failed for %d client(s)", len(result.Errors))
	}

	fmt.Fprintf(w, "Applied to %d client(s)\n", len(result.FilesChanged))
	return nil
}
