package source

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"upm/internal/executor"
)

// snapNamePattern matches valid snap names: lowercase letters, digits, and
// hyphens, starting with a letter or digit.
var snapNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Snap drives the Snap backend.
type Snap struct {
	exec *executor.Executor
}

// NewSnap creates a new Snap adapter.
func NewSnap(exec *executor.Executor) *Snap {
	return &Snap{exec: exec}
}

// Name returns the short identifier.
func (s *Snap) Name() string { return "snap" }

// Kind returns KindSnap.
func (s *Snap) Kind() Kind { return KindSnap }

// SourceLabel returns the human-readable provenance.
func (s *Snap) SourceLabel() string { return "Snap Store" }

// IsAvailable reports whether snap is installed and snapd is running.
// A present binary with a dead daemon would make every operation fail, so
// both are probed.
func (s *Snap) IsAvailable() bool {
	if _, err := exec.LookPath("snap"); err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	output, err := s.exec.OutputQuiet(ctx, "systemctl", "is-active", "snapd")
	if err != nil {
		return false
	}
	return strings.TrimSpace(output) == "active"
}

// Search finds snaps via snap find.
func (s *Snap) Search(ctx context.Context, query string, limit int) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	output, err := s.exec.OutputQuiet(ctx, "snap", "find", query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("snap find %q: %w", query, ctx.Err())
		}
		// snap find exits nonzero when nothing matches.
		return nil, nil
	}

	return s.parseFindOutput(output, limit), nil
}

// parseFindOutput parses snap find column output:
// Name  Version  Publisher  Notes  Summary
func (s *Snap) parseFindOutput(output string, limit int) []Package {
	var packages []Package
	scanner := bufio.NewScanner(strings.NewReader(output))
	headerSkipped := false

	for scanner.Scan() {
		line := scanner.Text()
		if !headerSkipped {
			headerSkipped = true
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		pkg := Package{
			SourceID:    fields[0],
			Name:        fields[0],
			Version:     fields[1],
			Kind:        KindSnap,
			SourceLabel: s.SourceLabel(),
		}
		if len(fields) > 2 {
			pkg.Extra = map[string]string{"publisher": fields[2]}
		}
		if len(fields) > 4 {
			pkg.Description = strings.Join(fields[4:], " ")
		}

		packages = append(packages, pkg)
		if limit > 0 && len(packages) >= limit {
			break
		}
	}

	return packages
}

// Install installs a snap.
func (s *Snap) Install(ctx context.Context, id string) error {
	if !snapNamePattern.MatchString(id) {
		return fmt.Errorf("invalid snap name: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	return s.exec.RunElevated(ctx, "snap", "install", id)
}

// Remove uninstalls a snap.
func (s *Snap) Remove(ctx context.Context, id string) error {
	if !snapNamePattern.MatchString(id) {
		return fmt.Errorf("invalid snap name: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	return s.exec.RunElevated(ctx, "snap", "remove", id)
}

// ListInstalled returns all installed snaps.
func (s *Snap) ListInstalled(ctx context.Context) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	output, err := s.exec.Output(ctx, "snap", "list")
	if err != nil {
		return nil, fmt.Errorf("snap list failed: %w", err)
	}

	var packages []Package
	scanner := bufio.NewScanner(strings.NewReader(output))
	headerSkipped := false

	for scanner.Scan() {
		if !headerSkipped {
			headerSkipped = true
			continue
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		pkg := Package{
			SourceID:    fields[0],
			Name:        fields[0],
			Version:     fields[1],
			Kind:        KindSnap,
			SourceLabel: s.SourceLabel(),
			Installed:   true,
		}
		if len(fields) > 2 {
			pkg.Extra = map[string]string{"revision": fields[2]}
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}

// Info returns detailed information about a snap.
func (s *Snap) Info(ctx context.Context, id string) (*Details, error) {
	if !snapNamePattern.MatchString(id) {
		return nil, fmt.Errorf("invalid snap name: %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	output, err := s.exec.OutputQuiet(ctx, "snap", "info", id)
	if err != nil {
		return nil, fmt.Errorf("snap %q not found", id)
	}

	return s.parseInfoOutput(output), nil
}

func (s *Snap) parseInfoOutput(output string) *Details {
	d := &Details{
		Package: Package{
			Kind:        KindSnap,
			SourceLabel: s.SourceLabel(),
			Extra:       map[string]string{},
		},
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "name":
			d.SourceID = value
			d.Name = value
		case "summary":
			d.Description = value
		case "publisher":
			d.Maintainer = value
		case "license":
			d.License = value
		case "contact":
			d.Homepage = value
		case "snap-id":
			d.Extra["snap-id"] = value
		}
	}

	// Version lives under the channels listing; "installed:" is simplest.
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "installed:") {
			fields := strings.Fields(strings.TrimPrefix(line, "installed:"))
			if len(fields) > 0 {
				d.Version = fields[0]
			}
		}
	}

	return d
}
