package commands

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/registry"
)

func init() {
	rootCmd.AddCommand(clientsCmd)
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Show supported clients and whether they are installed",
	Long: `List the supported AI coding tools, their config file locations and
whether each looks installed on this machine. A client counts as
installed when its binary resolves on PATH or its config file exists.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runClientsWithIO(os.Stdout)
	},
}

func runClientsWithIO(w io.Writer) error {
	adapters := registry.Adapters(adapterOptions())

	// Probing hits the filesystem and PATH per client, so do them all at once.
	installed := make([]bool, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		i, a := i, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			installed[i] = a.IsInstalled()
		}()
	}
	wg.Wait()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%sCLIENT%s\t%sCONFIG%s\t%sSTATUS%s\n",
		colorBold, colorReset,
		colorBold, colorReset,
		colorBold, colorReset)

	for i, a := range adapters {
		path, err := a.ConfigPath()
		if err != nil {
			path = "(unresolved)"
		}

		status := colorGray + "not installed" + colorReset
		if installed[i] {
			status = colorGreen + "installed" + colorReset
		}

		fmt.Fprintf(tw, "%s%s%s\t%s\t%s\n",
			colorCyan, a.Type(), colorReset, path, status)
	}
	return tw.Flush()
}
