package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"upm/internal/executor"
	"upm/internal/ratelimit"
)

// flatpakIDPattern matches Flatpak application IDs in reverse-DNS notation
// (org.example.AppName). IDs are validated before reaching a command line.
var flatpakIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+(\.[a-zA-Z0-9_-]+)+$`)

// flathubRepoURL is the flatpakrepo used when configuring the remote.
const flathubRepoURL = "https://flathub.org/repo/flathub.flatpakrepo"

// Flatpak drives the Flatpak backend. Searches prefer the Flathub API
// (faster and richer) and fall back to the flatpak CLI when the API is
// unreachable or throttled.
type Flatpak struct {
	exec    *executor.Executor
	flathub *FlathubClient
}

// NewFlatpak creates a new Flatpak adapter. flathub may be nil to force
// CLI-only searches.
func NewFlatpak(exec *executor.Executor, flathub *FlathubClient) *Flatpak {
	return &Flatpak{exec: exec, flathub: flathub}
}

// Name returns the short identifier.
func (f *Flatpak) Name() string { return "flatpak" }

// Kind returns KindFlatpak.
func (f *Flatpak) Kind() Kind { return KindFlatpak }

// SourceLabel returns the human-readable provenance.
func (f *Flatpak) SourceLabel() string { return "Flathub" }

// IsAvailable reports whether flatpak is installed.
func (f *Flatpak) IsAvailable() bool {
	_, err := exec.LookPath("flatpak")
	return err == nil
}

// IsFlathubConfigured reports whether the flathub remote exists.
func (f *Flatpak) IsFlathubConfigured(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := f.exec.OutputQuiet(ctx, "flatpak", "remotes")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(output), "flathub")
}

// SetupFlathub adds the flathub remote if it is not configured yet.
func (f *Flatpak) SetupFlathub(ctx context.Context) error {
	if f.IsFlathubConfigured(ctx) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	return f.exec.RunElevated(ctx, "flatpak", "remote-add", "--if-not-exists", "flathub", flathubRepoURL)
}

// Search queries Flathub, falling back to the flatpak CLI. A rate-limit
// denial from the API client is surfaced as-is so callers can distinguish
// throttling from failure.
func (f *Flatpak) Search(ctx context.Context, query string, limit int) ([]Package, error) {
	if f.flathub != nil {
		packages, err := f.flathub.Search(ctx, query, limit)
		if err == nil && len(packages) > 0 {
			return packages, nil
		}

		var denied *ratelimit.DeniedError
		if errors.As(err, &denied) {
			return nil, err
		}
		// API failure or empty: fall through to the CLI.
	}

	return f.searchCLI(ctx, query, limit)
}

func (f *Flatpak) searchCLI(ctx context.Context, query string, limit int) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	output, err := f.exec.OutputQuiet(ctx, "flatpak", "search",
		"--columns=name,description,application,version,branch", query)
	if err != nil {
		return nil, fmt.Errorf("flatpak search failed: %w", err)
	}

	return f.parseSearchOutput(output, limit), nil
}

// parseSearchOutput parses tab-separated flatpak search output:
// Name  Description  Application ID  Version  Branch
func (f *Flatpak) parseSearchOutput(output string, limit int) []Package {
	var packages []Package
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}

		appID := strings.TrimSpace(parts[2])
		if !flatpakIDPattern.MatchString(appID) {
			continue // header or malformed row
		}

		pkg := Package{
			SourceID:    appID,
			Name:        strings.TrimSpace(parts[0]),
			Description: strings.TrimSpace(parts[1]),
			Kind:        KindFlatpak,
			SourceLabel: f.SourceLabel(),
		}
		if len(parts) > 3 {
			pkg.Version = strings.TrimSpace(parts[3])
		}
		if len(parts) > 4 {
			pkg.Extra = map[string]string{"branch": strings.TrimSpace(parts[4])}
		}

		packages = append(packages, pkg)
		if limit > 0 && len(packages) >= limit {
			break
		}
	}

	return packages
}

// Install installs a Flatpak application from flathub.
func (f *Flatpak) Install(ctx context.Context, id string) error {
	if !flatpakIDPattern.MatchString(id) {
		return fmt.Errorf("invalid flatpak application id: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	return f.exec.RunElevated(ctx, "flatpak", "install", "-y", "flathub", id)
}

// Remove uninstalls a Flatpak application.
func (f *Flatpak) Remove(ctx context.Context, id string) error {
	if !flatpakIDPattern.MatchString(id) {
		return fmt.Errorf("invalid flatpak application id: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	return f.exec.RunElevated(ctx, "flatpak", "uninstall", "-y", id)
}

// ListInstalled returns all installed Flatpak applications.
func (f *Flatpak) ListInstalled(ctx context.Context) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	output, err := f.exec.Output(ctx, "flatpak", "list", "--app",
		"--columns=name,application,version,branch")
	if err != nil {
		return nil, fmt.Errorf("flatpak list failed: %w", err)
	}

	var packages []Package
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if len(parts) < 2 {
			continue
		}

		appID := strings.TrimSpace(parts[1])
		if !flatpakIDPattern.MatchString(appID) {
			continue
		}

		pkg := Package{
			SourceID:    appID,
			Name:        strings.TrimSpace(parts[0]),
			Kind:        KindFlatpak,
			SourceLabel: f.SourceLabel(),
			Installed:   true,
		}
		if len(parts) > 2 {
			pkg.Version = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 {
			pkg.Extra = map[string]string{"branch": strings.TrimSpace(parts[3])}
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}

// Info returns detailed information about a Flatpak application, trying the
// installed app first and then the flathub remote.
func (f *Flatpak) Info(ctx context.Context, id string) (*Details, error) {
	if !flatpakIDPattern.MatchString(id) {
		return nil, fmt.Errorf("invalid flatpak application id: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	output, err := f.exec.OutputQuiet(ctx, "flatpak", "info", id)
	if err != nil {
		output, err = f.exec.OutputQuiet(ctx, "flatpak", "remote-info", "flathub", id)
		if err != nil {
			return nil, fmt.Errorf("flatpak %q not found", id)
		}
	}

	return f.parseInfoOutput(id, output), nil
}

func (f *Flatpak) parseInfoOutput(id, output string) *Details {
	d := &Details{
		Package: Package{
			SourceID:    id,
			Name:        id,
			Kind:        KindFlatpak,
			SourceLabel: f.SourceLabel(),
			Extra:       map[string]string{},
		},
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "Name":
			d.Name = value
		case "Version":
			d.Version = value
		case "License":
			d.License = value
		case "Branch":
			d.Extra["branch"] = value
		case "Origin":
			d.Extra["origin"] = value
		}
	}

	return d
}
