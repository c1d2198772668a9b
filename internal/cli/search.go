package cli

import (
	"context"
	"errors"
	"fmt"

	"upm/internal/ratelimit"
	"upm/internal/ui"
	"upm/pkg/source"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for packages",
	Long: `Search for packages across all enabled package sources.

Results are merged into one list in source priority order (apt, snap,
flatpak) and deduplicated. Sources that are disabled, missing, or rate
limited are reported but never abort the search.

Use --source to search a single source only.

Examples:
  upm search firefox            # Search all enabled sources
  upm search vim -s apt         # Search only apt
  upm search -l 10 editor       # At most 10 results per source`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "limit results per source (0 = no extra limit)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	// If source is explicitly specified, search only that source
	if sourceFlag != "" {
		return searchSingleSource(ctx, query, sourceFlag)
	}

	ui.InfoMsg("Searching for '%s' across all sources...", query)

	report, err := agg.Search(ctx, query)
	if err != nil {
		var denied *ratelimit.DeniedError
		if errors.As(err, &denied) {
			ui.WarningMsg("Search rate limit reached, retry in %.0fs", denied.Wait.Seconds())
			return err
		}
		return err
	}

	if searchLimit > 0 && len(report.Packages) > searchLimit {
		report.Packages = report.Packages[:searchLimit]
	}

	ui.PrintSearchReport(report)
	return offerInstall(ctx, report.Packages)
}

// searchSingleSource searches a specific package source.
func searchSingleSource(ctx context.Context, query, sourceName string) error {
	ad, err := enabledAdapter(sourceName)
	if err != nil {
		return err
	}

	ui.InfoMsg("Searching for '%s' in %s...", query, ad.SourceLabel())

	if denied := limits.Allow(ratelimit.KeySearch); denied != nil {
		return denied
	}

	limit := searchLimit
	if limit <= 0 {
		limit = 50
	}

	results, err := ad.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	ui.PrintPackages(results)
	return offerInstall(ctx, results)
}

// offerInstall offers to install a selected package.
func offerInstall(ctx context.Context, results []source.Package) error {
	if len(results) == 0 {
		return nil
	}

	pkg, err := ui.SelectPackage(results, "Select a package to install")
	if err != nil || pkg == nil {
		return nil
	}

	ad, err := adapterFor(string(pkg.Kind))
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("Install %s from %s?", pkg.Name, pkg.SourceLabel)
	confirmed, _ := ui.Confirm(prompt, true) //nolint:errcheck
	if confirmed {
		return installPackage(ctx, ad, *pkg)
	}

	return nil
}
