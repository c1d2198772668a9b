package cli

import (
	"context"

	"upm/internal/ratelimit"
	"upm/internal/tui"
	"upm/pkg/source"

	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse packages interactively",
	Long: `Open an interactive terminal browser over the merged search.

Type a query, move through the combined results from every enabled
source, and install or remove packages without leaving the screen.

Examples:
  upm browse`,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	// The TUI owns the screen, so these actions skip the CLI spinner and
	// talk to the adapters directly.
	install := func(ctx context.Context, pkg source.Package) error {
		ad, err := adapterFor(string(pkg.Kind))
		if err != nil {
			return err
		}
		if err := limits.Allow(ratelimit.KeyInstall); err != nil {
			return err
		}
		err = ad.Install(ctx, pkg.SourceID)
		recordAction("install", pkg, err)
		if err != nil {
			return err
		}
		return trackInstall(pkg)
	}
	remove := func(ctx context.Context, pkg source.Package) error {
		ad, err := adapterFor(string(pkg.Kind))
		if err != nil {
			return err
		}
		if err := ad.Remove(ctx, pkg.SourceID); err != nil {
			recordAction("uninstall", pkg, err)
			return err
		}
		recordAction("uninstall", pkg, nil)
		return db.RemoveInstalledApp(pkg.SourceID)
	}

	app := tui.NewApp(agg, install, remove)
	return app.Run()
}
