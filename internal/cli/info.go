package cli

import (
	"context"

	"upm/internal/ui"
	"upm/pkg/source"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [package]",
	Short: "Show package information",
	Long: `Display detailed information about a specific package.

Without --source, each enabled source is asked in priority order and the
first one that knows the package answers.

Examples:
  upm info vim                    # First source that knows the package
  upm info org.mozilla.firefox -s flatpak`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pkg := resolvePackages(args)[0]

	var details *source.Details
	if sourceFlag != "" {
		ad, err := enabledAdapter(sourceFlag)
		if err != nil {
			return err
		}
		details, err = ad.Info(ctx, pkg)
		if err != nil {
			return err
		}
	} else {
		prefs, err := db.Preferences()
		if err != nil {
			return err
		}
		for _, ad := range adapters {
			if !sourceEnabled(prefs, ad.Kind()) || !ad.IsAvailable() {
				continue
			}
			if d, err := ad.Info(ctx, pkg); err == nil && d != nil {
				details = d
				break
			}
		}
		if details == nil {
			return ErrPackageNotFound
		}
	}

	ui.PrintPackageInfo(details)

	if tracked, _ := db.IsAppInstalled(pkg); tracked { //nolint:errcheck
		ui.MutedMsg("Install is tracked in the local database")
	}

	return nil
}
