package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/registry"
	"github.com/thoreinstein/orbit/internal/store"
)

var (
	enableClients  []string
	disableClients []string
)

func init() {
	enableCmd.Flags().StringSliceVarP(&enableClients, "client", "c", nil,
		"client(s) to enable the server for (default: all bound clients)")
	disableCmd.Flags().StringSliceVarP(&disableClients, "client", "c", nil,
		"client(s) to disable the server for (default: all bound clients)")
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a server's bindings",
	Long: `Enable a server for one or more clients. The affected client config
files are rewritten immediately.

Examples:
  # Enable everywhere the server is bound
  orbit enable github

  # Enable only for codex
  orbit enable github --client codex`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runSetEnabledWithIO(args[0], store.On, enableClients, os.Stdout)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a server's bindings without removing them",
	Long: `Disable a server for one or more clients without removing it from the
registry. The affected client config files are rewritten immediately.
Use 'orbit enable' to re-enable it later.

Examples:
  # Disable everywhere the server is bound
  orbit disable github

  # Disable only for gemini-cli
  orbit disable github --client gemini-cli`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runSetEnabledWithIO(args[0], store.Off, disableClients, os.Stdout)
	},
}

// runSetEnabledWithIO toggles the named server's bindings for the selected
// clients and reports the result per client.
func runSetEnabledWithIO(name string, enabled store.Toggle, clients []string, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	srv, ok := st.ServerByName(name)
	if !ok {
		return fmt.Errorf("server %q not found in the registry", name)
	}

	selected := map[string]bool{}
	for _, c := range clients {
		if !paths.ValidClient(c) {
			return fmt.Errorf("invalid client %q (valid: %v)", c, paths.Clients())
		}
		selected[c] = true
	}

	verb := "enabled"
	if enabled == store.Off {
		verb = "disabled"
	}

	var touched int
	for _, binding := range st.BindingsByServer(srv.ID) {
		if len(selected) > 0 && !selected[binding.Client] {
			continue
		}
		touched++

		if err := registry.SetBindingEnabled(st, logger(), binding.ID, enabled, adapterOptions()); err != nil {
			fmt.Fprintf(w, "  %s: error: %v\n", binding.Client, err)
			continue
		}
		fmt.Fprintf(w, "  %s%s%s: %s\n", colorCyan, binding.Client, colorReset, verb)
	}

	if touched == 0 {
		return fmt.Errorf("server %q has no bindings for the selected client(s)", name)
	}
	return nil
}
