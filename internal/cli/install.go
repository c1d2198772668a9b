package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"upm/internal/ratelimit"
	"upm/internal/store"
	"upm/internal/ui"
	"upm/pkg/source"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [packages...]",
	Short: "Install one or more packages",
	Long: `Install packages from the first enabled source that has them,
or from an explicitly specified source.

Every successful install is recorded in the local database so it shows
up in 'upm list --db' even after the source's own metadata is gone.

Examples:
  upm install vim git curl         # Install from the first source that has each
  upm install spotify -s flatpak   # Explicitly install from Flatpak
  upm install -y neovim            # Install without confirmation`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	packages := resolvePackages(args)

	var lastErr error
	for _, pkg := range packages {
		var (
			ad    source.Adapter
			found source.Package
			err   error
		)
		if sourceFlag != "" {
			ad, err = enabledAdapter(sourceFlag)
			if err != nil {
				return err
			}
			found = source.Package{SourceID: pkg, Name: pkg, Kind: ad.Kind(), SourceLabel: ad.SourceLabel()}
		} else {
			ad, found, err = findPackage(ctx, pkg)
			if err != nil {
				ui.ErrorMsg("%s: %v", pkg, err)
				lastErr = err
				continue
			}
			ui.InfoMsg("Found '%s' in %s", found.Name, found.SourceLabel)
		}

		if !cfg.General.AutoConfirm && !cfg.General.DryRun {
			confirmed, err := ui.Confirm("Install "+found.Name+" from "+found.SourceLabel+"?", true)
			if err != nil {
				return err
			}
			if !confirmed {
				return ErrAborted
			}
		}

		if err := installPackage(ctx, ad, found); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// findPackage looks for an exact match in each enabled source, in priority
// order. A prefix match is remembered as a fallback but an exact match in
// a later source still wins.
func findPackage(ctx context.Context, name string) (source.Adapter, source.Package, error) {
	prefs, err := db.Preferences()
	if err != nil {
		return nil, source.Package{}, err
	}

	nameLower := strings.ToLower(name)
	var fallbackAd source.Adapter
	var fallback source.Package

	for _, ad := range adapters {
		if !sourceEnabled(prefs, ad.Kind()) || !ad.IsAvailable() {
			continue
		}

		results, err := ad.Search(ctx, name, 50)
		if err != nil {
			continue
		}

		for _, r := range results {
			rLower := strings.ToLower(r.Name)
			if rLower == nameLower || strings.ToLower(r.SourceID) == nameLower {
				return ad, r, nil
			}
			if fallbackAd == nil && strings.HasPrefix(rLower, nameLower) {
				fallbackAd = ad
				fallback = r
			}
		}
	}

	if fallbackAd != nil {
		return fallbackAd, fallback, nil
	}
	return nil, source.Package{}, ErrPackageNotFound
}

// installPackage installs one package through its adapter and records the
// result in the local database.
func installPackage(ctx context.Context, ad source.Adapter, pkg source.Package) error {
	if err := limits.Allow(ratelimit.KeyInstall); err != nil {
		var denied *ratelimit.DeniedError
		if errors.As(err, &denied) {
			ui.WarningMsg("Install rate limit reached, retry in %.0fs", denied.Wait.Seconds())
		}
		return err
	}

	err := ui.WithSpinner("Installing "+pkg.Name+" from "+pkg.SourceLabel,
		"Installed "+pkg.Name, func() error {
		return ad.Install(ctx, pkg.SourceID)
	})

	recordAction("install", pkg, err)

	if err != nil {
		return err
	}
	if cfg.General.DryRun {
		return nil
	}

	if dbErr := trackInstall(pkg); dbErr != nil && cfg.Output.Verbose {
		ui.WarningMsg("Could not record install: %v", dbErr)
	}
	return nil
}

// trackInstall records a completed install in the local database.
func trackInstall(pkg source.Package) error {
	_, err := db.AddInstalledApp(store.InstalledApp{
		Name:        pkg.Name,
		PackageName: pkg.SourceID,
		PackageType: string(pkg.Kind),
		SourceRepo:  pkg.SourceLabel,
		Version:     pkg.Version,
		Description: pkg.Description,
		InstallDate: time.Now().UTC(),
	})
	return err
}

// recordAction writes one action-log row; logging failures are silent.
// Dry runs execute nothing, so nothing is logged.
func recordAction(action string, pkg source.Package, opErr error) {
	if cfg.General.DryRun {
		return
	}
	entry := store.LogEntry{
		Timestamp:   time.Now().UTC(),
		ActionType:  action,
		PackageName: pkg.SourceID,
		PackageType: string(pkg.Kind),
		Status:      "success",
		Message:     action + " " + pkg.Name,
	}
	if opErr != nil {
		entry.Status = "failure"
		entry.ErrorDetails = opErr.Error()
	}
	_ = db.AddLog(entry) //nolint:errcheck
}
