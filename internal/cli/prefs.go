package cli

import (
	"fmt"
	"strconv"
	"strings"

	"upm/internal/ui"

	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change preferences",
	Long: `Show or change upm preferences stored in the local database.

Boolean values accept on/off, true/false, yes/no, 1/0.

Settings:
  apt, snap, flatpak      enable or disable a package source
  notifications           enable or disable desktop notifications
  log-retention           days to keep action logs
  auto-save-metadata      record package metadata on install

Examples:
  upm prefs                       # Show current preferences
  upm prefs set snap off          # Disable the Snap source
  upm prefs set log-retention 90  # Keep logs for 90 days`,
	RunE: runPrefsShow,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set [setting] [value]",
	Short: "Change a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefsSet,
}

func init() {
	prefsCmd.AddCommand(prefsSetCmd)
}

// prefKeys maps user-facing setting names to preference columns.
var prefKeys = map[string]string{
	"apt":                "repo_apt_enabled",
	"snap":               "repo_snapd_enabled",
	"flatpak":            "repo_flathub_enabled",
	"notifications":      "notifications_enabled",
	"log-retention":      "log_retention_days",
	"auto-save-metadata": "auto_save_metadata",
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	prefs, err := db.Preferences()
	if err != nil {
		return err
	}

	ui.HeaderMsg("Preferences")
	printPref("apt", prefs.AptEnabled)
	printPref("snap", prefs.SnapdEnabled)
	printPref("flatpak", prefs.FlathubEnabled)
	printPref("notifications", prefs.NotificationsEnabled)
	ui.Println("  %s: %d days", ui.Cyan("log-retention"), prefs.LogRetentionDays)
	printPref("auto-save-metadata", prefs.AutoSaveMetadata)
	return nil
}

func printPref(name string, enabled bool) {
	state := ui.Green("on")
	if !enabled {
		state = ui.Red("off")
	}
	ui.Println("  %s: %s", ui.Cyan(name), state)
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	setting := strings.ToLower(args[0])
	column, ok := prefKeys[setting]
	if !ok {
		return fmt.Errorf("unknown setting %q", setting)
	}

	value, err := parsePrefValue(setting, args[1])
	if err != nil {
		return err
	}

	if err := db.SetPreference(column, value); err != nil {
		return err
	}

	ui.SuccessMsg("%s set to %v", setting, value)
	return nil
}

func parsePrefValue(setting, raw string) (any, error) {
	if setting == "log-retention" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			return nil, fmt.Errorf("log-retention needs a positive number of days")
		}
		return days, nil
	}

	switch strings.ToLower(raw) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return nil, fmt.Errorf("expected on/off, got %q", raw)
}
