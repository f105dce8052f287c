package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/registry"
	"github.com/thoreinstein/orbit/internal/store"
)

var (
	serverAddType    string
	serverAddCommand string
	serverAddArgs    []string
	serverAddCwd     string
	serverAddURL     string
	serverAddHeaders map[string]string
	serverAddEnv     map[string]string
	serverAddClients []string
)

func init() {
	serverAddCmd.Flags().StringVar(&serverAddType, "type", "stdio", "server type: stdio, http")
	serverAddCmd.Flags().StringVar(&serverAddCommand, "command", "", "command to launch (stdio)")
	serverAddCmd.Flags().StringSliceVar(&serverAddArgs, "arg", nil, "command argument, repeatable (stdio)")
	serverAddCmd.Flags().StringVar(&serverAddCwd, "cwd", "", "working directory (stdio)")
	serverAddCmd.Flags().StringVar(&serverAddURL, "url", "", "server URL (http)")
	serverAddCmd.Flags().StringToStringVar(&serverAddHeaders, "header", nil, "HTTP header key=value, repeatable (http)")
	serverAddCmd.Flags().StringToStringVar(&serverAddEnv, "env", nil, "environment variable key=value, repeatable")
	serverAddCmd.Flags().StringSliceVarP(&serverAddClients, "client", "c", nil,
		"client(s) to bind the server to (default: all)")

	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverRemoveCmd)
	serverCmd.AddCommand(serverShowCmd)
	serverCmd.AddCommand(serverBindCmd)
	serverCmd.AddCommand(serverUnbindCmd)
	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage registry servers directly",
	Long: `Add, remove and inspect servers in the registry without going through
a client config file. Changes become visible to clients on the next
'orbit apply'.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var serverAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a server to the registry",
	Long: `Add a server definition to the registry and bind it to clients.

Examples:
  # A local stdio server bound everywhere
  orbit server add github --command npx --arg -y --arg github-mcp

  # A remote server for codex only
  orbit server add docs --type http --url https://docs.example.com/mcp \
    --header Authorization=Bearer:token --client codex`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runServerAddWithIO(args[0], os.Stdout)
	},
}

func runServerAddWithIO(name string, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	clients := serverAddClients
	if len(clients) == 0 {
		clients = paths.Clients()
	}
	for _, c := range clients {
		if !paths.ValidClient(c) {
			return fmt.Errorf("invalid client %q (valid: %v)", c, paths.Clients())
		}
	}

	srv := store.Server{
		Name:    name,
		Type:    store.ServerType(serverAddType),
		Command: serverAddCommand,
		Args:    serverAddArgs,
		Cwd:     serverAddCwd,
		URL:     serverAddURL,
		Headers: serverAddHeaders,
		Env:     serverAddEnv,
	}

	created, err := registry.CreateServer(st, logger(), srv, clients)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Added %s%s%s (%s), bound to %d client(s)\n",
		colorGreen, created.Name, colorReset, created.Type, len(clients))
	fmt.Fprintln(w, "Run 'orbit apply' to push it to the clients")
	return nil
}

var serverRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server from the registry",
	Long: `Remove a server and all of its bindings from the registry.

The server stays in client config files until the next 'orbit apply'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runServerRemoveWithIO(args[0], os.Stdout)
	},
}

func runServerRemoveWithIO(name string, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	srv, ok := st.ServerByName(name)
	if !ok {
		return fmt.Errorf("server %q not found in the registry", name)
	}

	if err := registry.DeleteServer(st, logger(), srv.ID); err != nil {
		return err
	}

	fmt.Fprintf(w, "Removed %s%s%s\n", colorGreen, name, colorReset)
	return nil
}

var serverBindCmd = &cobra.Command{
	Use:   "bind <name> <client>",
	Short: "Bind a server to an additional client",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return runServerBindWithIO(args[0], args[1], os.Stdout)
	},
}

func runServerBindWithIO(name, clientType string, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if !paths.ValidClient(clientType) {
		return fmt.Errorf("invalid client %q (valid: %v)", clientType, paths.Clients())
	}

	srv, ok := st.ServerByName(name)
	if !ok {
		return fmt.Errorf("server %q not found in the registry", name)
	}

	if _, err := registry.CreateBinding(st, logger(), srv.ID, clientType); err != nil {
		return err
	}
	fmt.Fprintf(w, "Bound %s%s%s to %s\n", colorGreen, name, colorReset, clientType)
	return nil
}

var serverUnbindCmd = &cobra.Command{
	Use:   "unbind <name> <client>",
	Short: "Remove a server's binding to one client",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return runServerUnbindWithIO(args[0], args[1], os.Stdout)
	},
}

func runServerUnbindWithIO(name, clientType string, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	srv, ok := st.ServerByName(name)
	if !ok {
		return fmt.Errorf("server %q not found in the registry", name)
	}
	binding, ok := st.BindingByServerAndClient(srv.ID, clientType)
	if !ok {
		return fmt.Errorf("server %q is not bound to %s", name, clientType)
	}

	if err := registry.DeleteBinding(st, logger(), binding.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "Unbound %s%s%s from %s\n", colorGreen, name, colorReset, clientType)
	return nil
}

var serverShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a server's full definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runServerShowWithIO(args[0], os.Stdout)
	},
}

func runServerShowWithIO(name string, w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	srv, ok := st.ServerByName(name)
	if !ok {
		return fmt.Errorf("server %q not found in the registry", name)
	}

	out := store.ServerWithBindings{Server: srv, Bindings: st.BindingsByServer(srv.ID)}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
