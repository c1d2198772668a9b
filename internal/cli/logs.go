package cli

import (
	"upm/internal/ui"

	"github.com/spf13/cobra"
)

var (
	logsLimit  int
	logsAction string
	exportDays int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent actions",
	Long: `Show the action log: installs, removals, and failures recorded
in the local database.

Examples:
  upm logs                        # Show recent actions
  upm logs -l 50                  # Show the last 50
  upm logs --action install       # Installs only
  upm logs export actions.txt     # Export to a text file
  upm logs clean                  # Delete logs older than the retention window`,
	RunE: runLogs,
}

var logsExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export logs to a text file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogsExport,
}

var logsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete logs older than the retention window",
	RunE:  runLogsClean,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "l", 20, "number of entries to show")
	logsCmd.Flags().StringVar(&logsAction, "action", "", "filter by action type (install, uninstall)")
	logsExportCmd.Flags().IntVar(&exportDays, "days", 30, "how many days of logs to export")

	logsCmd.AddCommand(logsExportCmd)
	logsCmd.AddCommand(logsCleanCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	entries, err := db.Logs(logsLimit, logsAction)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		ui.MutedMsg("No log entries")
		return nil
	}

	table := ui.NewTable([]string{"time", "action", "package", "source", "status"})
	for _, e := range entries {
		status := e.Status
		if e.ErrorDetails != "" {
			status = status + ": " + e.ErrorDetails
		}
		table.AddRow([]string{
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.ActionType,
			e.PackageName,
			e.PackageType,
			status,
		})
	}
	table.Render()
	return nil
}

func runLogsExport(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := db.ExportLogs(path, exportDays); err != nil {
		return err
	}
	ui.SuccessMsg("Exported %d days of logs to %s", exportDays, path)
	return nil
}

func runLogsClean(cmd *cobra.Command, args []string) error {
	removed, err := db.CleanupOldLogs()
	if err != nil {
		return err
	}
	ui.SuccessMsg("Removed %d old log entries", removed)
	return nil
}
