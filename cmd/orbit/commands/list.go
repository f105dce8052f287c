package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/store"
)

var listOutput string

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered MCP servers",
	Long: `List every server in the registry together with its per-client
bindings and enabled state.

Examples:
  # Human-readable table
  orbit list

  # Machine-readable output
  orbit list -o json
  orbit list -o yaml`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runListWithIO(os.Stdout)
	},
}

// listServerOutput is one server in JSON/YAML output.
type listServerOutput struct {
	Name     string              `json:"name" yaml:"name"`
	Type     string              `json:"type" yaml:"type"`
	Command  string              `json:"command,omitempty" yaml:"command,omitempty"`
	Args     []string            `json:"args,omitempty" yaml:"args,omitempty"`
	URL      string              `json:"url,omitempty" yaml:"url,omitempty"`
	Bindings []listBindingOutput `json:"bindings" yaml:"bindings"`
}

type listBindingOutput struct {
	Client  string `json:"client" yaml:"client"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

func runListWithIO(w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	servers := st.ServersWithBindings()

	switch listOutput {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listOutputOf(servers))
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(listOutputOf(servers))
	case "table":
		return outputListTabular(w, servers)
	default:
		return errors.Newf("unknown output format %q (valid: table, json, yaml)", listOutput)
	}
}

func listOutputOf(servers []store.ServerWithBindings) []listServerOutput {
	out := make([]listServerOutput, 0, len(servers))
	for _, s := range servers {
		bindings := make([]listBindingOutput, 0, len(s.Bindings))
		for _, b := range s.Bindings {
			bindings = append(bindings, listBindingOutput{
				Client:  b.Client,
				Enabled: b.Enabled != store.Off,
			})
		}
		out = append(out, listServerOutput{
			Name:     s.Name,
			Type:     string(s.Type),
			Command:  s.Command,
			Args:     s.Args,
			URL:      s.URL,
			Bindings: bindings,
		})
	}
	return out
}

func outputListTabular(w io.Writer, servers []store.ServerWithBindings) error {
	if len(servers) == 0 {
		fmt.Fprintln(w, "No servers registered. Run 'orbit rebuild' to import from clients.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%sNAME%s\t%sTYPE%s\t%sENDPOINT%s\t%sCLIENTS%s\n",
		colorBold, colorReset,
		colorBold, colorReset,
		colorBold, colorReset,
		colorBold, colorReset)

	for _, s := range servers {
		endpoint := s.Command
		if s.URL != "" {
			endpoint = s.URL
		}
		endpoint = truncate(endpoint, 50)

		clients := ""
		for i, b := range s.Bindings {
			if i > 0 {
				clients += " "
			}
			if b.Enabled == store.Off {
				clients += colorGray + b.Client + "(off)" + colorReset
			} else {
				clients += colorGreen + b.Client + colorReset
			}
		}

		fmt.Fprintf(tw, "%s%s%s\t%s\t%s\t%s\n",
			colorCyan, s.Name, colorReset, s.Type, endpoint, clients)
	}
	return tw.Flush()
}
