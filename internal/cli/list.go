package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"upm/internal/ui"
	"upm/pkg/source"
)

var (
	listPattern string
	listFromDB  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long: `List installed packages from every enabled source, or from the
local install database.

Examples:
  upm list                      # List installed packages from all sources
  upm list -s flatpak           # List installed Flatpaks only
  upm list --db                 # List installs tracked in the local database
  upm list -p vim               # Filter by name`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listPattern, "pattern", "p", "", "filter by name pattern")
	listCmd.Flags().BoolVar(&listFromDB, "db", false, "list from the local install database")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if listFromDB {
		return listFromDatabase()
	}

	prefs, err := db.Preferences()
	if err != nil {
		return err
	}

	var all []source.Package
	for _, ad := range adapters {
		if sourceFlag != "" && ad.Name() != sourceFlag {
			continue
		}
		if !sourceEnabled(prefs, ad.Kind()) || !ad.IsAvailable() {
			continue
		}

		packages, err := ad.ListInstalled(ctx)
		if err != nil {
			ui.WarningMsg("%s: %v", ad.Name(), err)
			continue
		}
		all = append(all, packages...)
	}

	all = filterByPattern(all, listPattern)
	ui.PrintPackages(all)
	ui.MutedMsg("\nTotal: %d packages", len(all))
	return nil
}

// listFromDatabase lists the active install records upm itself tracked.
func listFromDatabase() error {
	packageType := sourceFlag
	apps, err := db.InstalledApps(packageType)
	if err != nil {
		return err
	}

	var packages []source.Package
	for _, app := range apps {
		packages = append(packages, source.Package{
			SourceID:    app.PackageName,
			Name:        app.Name,
			Description: app.Description,
			Version:     app.Version,
			Kind:        source.Kind(app.PackageType),
			SourceLabel: app.SourceRepo,
			Installed:   true,
		})
	}

	packages = filterByPattern(packages, listPattern)
	ui.PrintPackages(packages)
	ui.MutedMsg("\nTotal: %d tracked installs", len(packages))
	return nil
}

func filterByPattern(packages []source.Package, pattern string) []source.Package {
	if pattern == "" {
		return packages
	}
	pattern = strings.ToLower(pattern)
	var out []source.Package
	for _, p := range packages {
		if strings.Contains(strings.ToLower(p.Name), pattern) ||
			strings.Contains(strings.ToLower(p.SourceID), pattern) {
			out = append(out, p)
		}
	}
	return out
}
