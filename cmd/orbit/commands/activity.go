package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/store"
)

var (
	activityListLimit int
	activityPruneDays int
)

func init() {
	activityListCmd.Flags().IntVarP(&activityListLimit, "limit", "n", 20,
		"maximum number of entries to show")
	activityPruneCmd.Flags().IntVar(&activityPruneDays, "older-than", 30,
		"remove entries older than this many days")

	activityCmd.AddCommand(activityListCmd)
	activityCmd.AddCommand(activityPruneCmd)
	rootCmd.AddCommand(activityCmd)
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Inspect the registry activity log",
	Long: `Every mutation of the registry (server created, binding toggled,
rebuild, drift detected) is recorded in an append-only activity log.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent activity, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runActivityListWithIO(os.Stdout)
	},
}

func runActivityListWithIO(w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	entries := st.RecentActivities(activityListLimit)
	if len(entries) == 0 {
		fmt.Fprintln(w, "No activity recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s%s%s\t%s\t%s%s%s\t%s\n",
			colorGray, e.CreatedAt.Local().Format("2006-01-02 15:04"), colorReset,
			e.Action,
			colorCyan, e.EntityName, colorReset,
			e.Details)
	}
	return tw.Flush()
}

var activityPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old activity entries",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runActivityPruneWithIO(os.Stdout)
	},
}

func runActivityPruneWithIO(w io.Writer) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -activityPruneDays)
	var removed int
	err = st.Transact(func(tx *store.Tx) error {
		removed = tx.PruneActivities(cutoff)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Removed %d entries older than %d day(s)\n", removed, activityPruneDays)
	return nil
}
