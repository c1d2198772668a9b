package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"upm/internal/aggregate"
	"upm/pkg/source"
)

// Table wraps tabwriter for consistent styling.
type Table struct {
	writer  *tabwriter.Writer
	headers []string
}

// NewTable creates a new table with default styling.
func NewTable(header []string) *Table {
	return NewTableWriter(os.Stdout, header)
}

// NewTableWriter creates a new table that writes to a specific writer.
func NewTableWriter(w io.Writer, header []string) *Table {
	t := &Table{
		writer:  tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: header,
	}
	if len(header) > 0 {
		headerRow := make([]string, len(header))
		for i, h := range header {
			headerRow[i] = Bold(strings.ToUpper(h))
		}
		fmt.Fprintln(t.writer, strings.Join(headerRow, "\t"))
	}
	return t
}

// AddRow adds a row to the table.
func (t *Table) AddRow(row []string) {
	fmt.Fprintln(t.writer, strings.Join(row, "\t"))
}

// Render outputs the table.
func (t *Table) Render() {
	t.writer.Flush()
}

// PrintPackages prints a list of packages in a formatted table.
func PrintPackages(packages []source.Package) {
	if len(packages) == 0 {
		MutedMsg("No packages found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, Bold("SOURCE")+"\t"+Bold("NAME")+"\t"+Bold("VERSION")+"\t"+Bold("DESCRIPTION"))

	for _, pkg := range packages {
		src := PackageSource.Sprint("[" + string(pkg.Kind) + "]")
		name := PackageName.Sprint(pkg.Name)
		version := PackageVersion.Sprint(pkg.Version)

		desc := pkg.Description
		if len(desc) > 50 {
			desc = desc[:47] + "..."
		}

		if pkg.Installed {
			name = name + " " + Installed.Sprint("[installed]")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", src, name, version, desc)
	}

	w.Flush()
}

// PrintPackageInfo prints detailed package information.
func PrintPackageInfo(info *source.Details) {
	if info == nil {
		ErrorMsg("No package information available")
		return
	}

	HeaderMsg("Package Information")

	printField("Name", info.Name)
	printField("ID", info.SourceID)
	printField("Version", info.Version)
	printField("Source", info.SourceLabel)

	if info.Description != "" {
		printField("Description", info.Description)
	}

	if info.License != "" {
		printField("License", info.License)
	}

	if info.Homepage != "" {
		printField("Homepage", info.Homepage)
	}

	if info.Maintainer != "" {
		printField("Maintainer", info.Maintainer)
	}

	if len(info.Dependencies) > 0 {
		printField("Dependencies", strings.Join(info.Dependencies, ", "))
	}

	if info.Installed {
		printField("Status", Installed.Sprint("installed"))
	}
}

// printField prints a single field with formatting.
func printField(label, value string) {
	fmt.Printf("  %s: %s\n", Cyan(label), value)
}

// PrintSearchReport prints a merged search report grouped by source, in
// the fixed source priority order, followed by a note for every source
// that contributed nothing and why.
func PrintSearchReport(report *aggregate.Report) {
	grouped := make(map[source.Kind][]source.Package)
	for _, pkg := range report.Packages {
		grouped[pkg.Kind] = append(grouped[pkg.Kind], pkg)
	}

	if len(report.Packages) > 0 {
		HeaderMsg("Found %d results across %d sources", len(report.Packages), report.Queried())
	}

	for _, kind := range source.Kinds() {
		pkgs := grouped[kind]
		if len(pkgs) == 0 {
			continue
		}
		fmt.Printf("\n%s (%d):\n", PackageSource.Sprint("["+string(kind)+"]"), len(pkgs))

		for _, pkg := range pkgs {
			name := PackageName.Sprint(pkg.Name)
			version := ""
			if pkg.Version != "" {
				version = " " + PackageVersion.Sprint(pkg.Version)
			}

			installedMark := ""
			if pkg.Installed {
				installedMark = " " + Installed.Sprint("[installed]")
			}

			fmt.Printf("  %s%s%s\n", name, version, installedMark)

			if pkg.Description != "" {
				desc := pkg.Description
				if len(desc) > 70 {
					desc = desc[:67] + "..."
				}
				MutedMsg("    %s", desc)
			}
		}
	}

	if len(report.Packages) == 0 {
		MutedMsg("No packages found")
	}

	for _, out := range report.Outcomes {
		switch out.Status {
		case aggregate.StatusDisabled:
			MutedMsg("%s: disabled in preferences", out.Kind)
		case aggregate.StatusUnavailable:
			MutedMsg("%s: not available on this system", out.Kind)
		case aggregate.StatusDenied:
			WarningMsg("%s: rate limited, retry in %.0fs", out.Kind, out.Wait.Seconds())
		case aggregate.StatusFailed:
			WarningMsg("%s: search failed: %v", out.Kind, out.Err)
		}
	}
}

// PrintDoctorReport prints each backend's availability.
func PrintDoctorReport(rows [][2]string) {
	HeaderMsg("Source Status")
	for _, row := range rows {
		printField(row[0], row[1])
	}
}
