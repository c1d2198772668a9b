package cli

import (
	"context"

	"upm/internal/ui"
	"upm/pkg/source"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall [packages...]",
	Aliases: []string{"remove", "rm"},
	Short:   "Remove one or more packages",
	Long: `Remove packages through the source that installed them.

The source is resolved from the local database when possible, so a
Flatpak app installed through upm is removed with flatpak even without
--source. Removals are soft-deleted in the database; the install record
survives for history.

Examples:
  upm uninstall vim                 # Remove, resolving the source automatically
  upm uninstall -y firefox          # Remove without confirmation
  upm uninstall spotify -s flatpak  # Remove explicitly via flatpak`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	packages := resolvePackages(args)

	var lastErr error
	for _, pkg := range packages {
		ad, err := resolveInstalledSource(pkg)
		if err != nil {
			ui.ErrorMsg("%s: %v", pkg, err)
			lastErr = err
			continue
		}

		if !cfg.General.AutoConfirm && !cfg.General.DryRun {
			confirmed, err := ui.Confirm("Remove "+pkg+" via "+ad.SourceLabel()+"?", false)
			if err != nil {
				return err
			}
			if !confirmed {
				return ErrAborted
			}
		}

		removed := source.Package{SourceID: pkg, Name: pkg, Kind: ad.Kind(), SourceLabel: ad.SourceLabel()}
		err = ui.WithSpinner("Removing "+pkg, "Removed "+pkg, func() error {
			return ad.Remove(ctx, pkg)
		})
		recordAction("uninstall", removed, err)

		if err != nil {
			lastErr = err
			continue
		}
		if cfg.General.DryRun {
			continue
		}

		if dbErr := db.RemoveInstalledApp(pkg); dbErr != nil && cfg.Output.Verbose {
			ui.WarningMsg("Could not record removal: %v", dbErr)
		}
	}

	return lastErr
}

// resolveInstalledSource picks the adapter that should remove a package:
// the --source flag wins, then the local database's record of how the
// package was installed, then the first source that lists it as installed.
func resolveInstalledSource(pkg string) (source.Adapter, error) {
	if sourceFlag != "" {
		return enabledAdapter(sourceFlag)
	}

	apps, err := db.InstalledApps("")
	if err == nil {
		for _, app := range apps {
			if app.PackageName == pkg || app.Name == pkg {
				return adapterFor(app.PackageType)
			}
		}
	}

	ctx := context.Background()
	for _, ad := range adapters {
		if !ad.IsAvailable() {
			continue
		}
		installed, err := ad.ListInstalled(ctx)
		if err != nil {
			continue
		}
		for _, p := range installed {
			if p.SourceID == pkg || p.Name == pkg {
				return ad, nil
			}
		}
	}

	return nil, ErrPackageNotFound
}
