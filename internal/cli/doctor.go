package cli

import (
	"upm/internal/config"
	"upm/internal/executor"
	"upm/internal/ratelimit"
	"upm/internal/ui"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose source and database issues",
	Long: `Check each package source, the local database, and privilege
escalation for common problems.

Examples:
  upm doctor               # Run diagnostics`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	issues := 0

	ui.HeaderMsg("Running diagnostics...")

	// Check sources
	prefs, err := db.Preferences()
	if err != nil {
		ui.ErrorMsg("Could not read preferences: %v", err)
		return err
	}

	usable := 0
	for _, ad := range adapters {
		switch {
		case !sourceEnabled(prefs, ad.Kind()):
			ui.MutedMsg("%s is disabled in preferences", ad.Name())
		case !ad.IsAvailable():
			ui.WarningMsg("%s is enabled but not available on this system", ad.Name())
			issues++
		default:
			ui.SuccessMsg("%s is available (%s)", ad.Name(), ad.SourceLabel())
			usable++
		}
	}
	if usable == 0 {
		ui.ErrorMsg("No usable package sources")
		issues++
	}

	// Check privilege escalation
	ui.HeaderMsg("Privileges")
	switch {
	case executor.IsRoot():
		ui.SuccessMsg("Running as root")
	case executor.CanElevate():
		ui.SuccessMsg("Privilege escalation available (pkexec or sudo)")
	default:
		ui.WarningMsg("Neither pkexec nor sudo found; installs will fail")
		issues++
	}

	// Check database
	ui.HeaderMsg("Database")
	if _, err := db.InstalledApps(""); err != nil {
		ui.ErrorMsg("Install database unreadable: %v", err)
		issues++
	} else {
		ui.SuccessMsg("Install database: %s", config.DatabasePath())
	}
	if apiCache == nil {
		ui.WarningMsg("API response cache unavailable; Flathub searches always hit the network")
	} else {
		ui.SuccessMsg("API response cache: %s", config.CachePath())
	}

	// Show effective rate limits
	ui.HeaderMsg("Rate Limits")
	for _, key := range []string{ratelimit.KeySearch, ratelimit.KeyInstall, ratelimit.KeyFlathub, ratelimit.KeySnap} {
		p := limits.Policy(key)
		ui.MutedMsg("  %s: %d requests per %s", key, p.MaxRequests, p.Window)
	}

	// Summary
	ui.HeaderMsg("Summary")
	if issues == 0 {
		ui.SuccessMsg("No issues found! upm is ready to use.")
	} else {
		ui.WarningMsg("Found %d issue(s). Some features may not work correctly.", issues)
	}

	return nil
}
