package source

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"upm/internal/executor"
)

// Per-operation timeouts, enforced at the adapter boundary.
const (
	probeTimeout   = 5 * time.Second
	searchTimeout  = 30 * time.Second
	listTimeout    = 30 * time.Second
	installTimeout = 5 * time.Minute
	removeTimeout  = 5 * time.Minute
)

// aptNamePattern matches valid Debian package names. Anything else is
// rejected before reaching a command line.
var aptNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.+-]*$`)

// APT drives the Debian/Ubuntu package backend.
type APT struct {
	exec *executor.Executor
}

// NewAPT creates a new APT adapter.
func NewAPT(exec *executor.Executor) *APT {
	return &APT{exec: exec}
}

// Name returns the short identifier.
func (a *APT) Name() string { return "apt" }

// Kind returns KindApt.
func (a *APT) Kind() Kind { return KindApt }

// SourceLabel returns the human-readable provenance.
func (a *APT) SourceLabel() string { return "Ubuntu/APT" }

// IsAvailable reports whether apt is installed.
func (a *APT) IsAvailable() bool {
	_, err := exec.LookPath("apt-get")
	return err == nil
}

// Search finds packages via apt-cache.
func (a *APT) Search(ctx context.Context, query string, limit int) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	output, err := a.exec.Output(ctx, "apt-cache", "search", query)
	if err != nil {
		return nil, fmt.Errorf("apt search failed: %w", err)
	}

	return a.parseSearchOutput(output, limit), nil
}

// parseSearchOutput parses apt-cache search output ("name - description").
func (a *APT) parseSearchOutput(output string, limit int) []Package {
	var packages []Package
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), " - ", 2)
		if len(parts) < 2 {
			continue
		}

		name := strings.TrimSpace(parts[0])
		packages = append(packages, Package{
			SourceID:    name,
			Name:        name,
			Description: strings.TrimSpace(parts[1]),
			Kind:        KindApt,
			SourceLabel: a.SourceLabel(),
		})

		if limit > 0 && len(packages) >= limit {
			break
		}
	}

	return packages
}

// Install installs a package through apt-get.
func (a *APT) Install(ctx context.Context, id string) error {
	if !aptNamePattern.MatchString(id) {
		return fmt.Errorf("invalid apt package name: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	return a.exec.RunElevated(ctx, "apt-get", "install", "-y", id)
}

// Remove uninstalls a package through apt-get.
func (a *APT) Remove(ctx context.Context, id string) error {
	if !aptNamePattern.MatchString(id) {
		return fmt.Errorf("invalid apt package name: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	return a.exec.RunElevated(ctx, "apt-get", "remove", "-y", id)
}

// ListInstalled returns all installed deb packages.
func (a *APT) ListInstalled(ctx context.Context) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	output, err := a.exec.Output(ctx, "dpkg-query", "-W", "-f=${Package}\\t${Version}\\t${Status}\\n")
	if err != nil {
		return nil, fmt.Errorf("dpkg-query failed: %w", err)
	}

	return a.parseInstalledOutput(output), nil
}

func (a *APT) parseInstalledOutput(output string) []Package {
	var packages []Package
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 3 || !strings.Contains(fields[2], "installed") {
			continue
		}

		packages = append(packages, Package{
			SourceID:    fields[0],
			Name:        fields[0],
			Version:     fields[1],
			Kind:        KindApt,
			SourceLabel: a.SourceLabel(),
			Installed:   true,
		})
	}

	return packages
}

// Info returns detailed information about a package from apt-cache show.
func (a *APT) Info(ctx context.Context, id string) (*Details, error) {
	if !aptNamePattern.MatchString(id) {
		return nil, fmt.Errorf("invalid apt package name: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	output, err := a.exec.OutputQuiet(ctx, "apt-cache", "show", id)
	if err != nil {
		return nil, fmt.Errorf("package %q not found", id)
	}

	return a.parseInfoOutput(output), nil
}

func (a *APT) parseInfoOutput(output string) *Details {
	d := &Details{
		Package: Package{
			Kind:        KindApt,
			SourceLabel: a.SourceLabel(),
			Extra:       map[string]string{},
		},
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) != 2 {
			continue
		}

		switch parts[0] {
		case "Package":
			d.SourceID = parts[1]
			d.Name = parts[1]
		case "Version":
			d.Version = parts[1]
		case "Description", "Description-en":
			d.Description = parts[1]
		case "Maintainer":
			d.Maintainer = parts[1]
		case "Homepage":
			d.Homepage = parts[1]
		case "Section":
			d.Extra["section"] = parts[1]
		case "Depends":
			d.Dependencies = parseAptDependencies(parts[1])
		}
	}

	return d
}

var aptDepPattern = regexp.MustCompile(`[a-zA-Z0-9._+-]+`)

func parseAptDependencies(deps string) []string {
	var result []string
	for _, dep := range strings.Split(deps, ",") {
		if m := aptDepPattern.FindString(strings.TrimSpace(dep)); m != "" {
			result = append(result, m)
		}
	}
	return result
}
