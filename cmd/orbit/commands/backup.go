package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/backup"
	"github.com/thoreinstein/orbit/internal/paths"
)

func init() {
	backupCmd.AddCommand(backupPruneCmd)
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage pre-apply config file backups",
	Long: `Each 'orbit apply' keeps a timestamped backup of every config file it
rewrites, under the orbit data directory.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove backups past the retention window",
	Long: `Remove backups older than the configured retention
(backup.retention_days, default 30). A retention of zero keeps backups
forever and makes this command a no-op.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runBackupPruneWithIO(os.Stdout)
	},
}

func runBackupPruneWithIO(w io.Writer) error {
	retention := 30
	if appConfig != nil {
		retention = appConfig.Backup.RetentionDays
	}
	if retention == 0 {
		fmt.Fprintln(w, "Retention is 0, keeping all backups")
		return nil
	}

	m := backup.NewManager(paths.BackupDir())
	removed, err := m.Prune(time.Duration(retention) * 24 * time.Hour)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Removed %d backup(s) older than %d day(s)\n", removed, retention)
	return nil
}
