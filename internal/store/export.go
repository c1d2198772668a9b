package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidExportPath is returned when a log export target fails path
// validation.
var ErrInvalidExportPath = errors.New("invalid export path")

// sensitivePrefixes are directories a log export must never write into.
var sensitivePrefixes = []string{"/etc", "/sys", "/proc"}

// validateExportPath rejects traversal components, sensitive system
// prefixes, and targets whose parent directory does not exist. Validation
// happens before any I/O.
func validateExportPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidExportPath)
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("%w: parent traversal in %q", ErrInvalidExportPath, path)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExportPath, err)
	}

	for _, prefix := range sensitivePrefixes {
		if abs == prefix || strings.HasPrefix(abs, prefix+"/") {
			return fmt.Errorf("%w: %q is under a protected system directory", ErrInvalidExportPath, path)
		}
	}

	parent := filepath.Dir(abs)
	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: parent directory %q does not exist", ErrInvalidExportPath, parent)
	}

	return nil
}

// ExportLogs writes a plain-text report of log entries from the last days
// days to path.
func (s *Store) ExportLogs(path string, days int) error {
	if err := validateExportPath(path); err != nil {
		return err
	}
	if days <= 0 {
		days = 7
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.Query(
		`SELECT timestamp, action_type, package_name, package_type, status, message, error_details
		 FROM logs WHERE timestamp >= ? ORDER BY timestamp DESC`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to query logs for export: %w", err)
	}
	defer rows.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "Unified Package Manager - Logs Export\n")
	fmt.Fprintf(f, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Period: Last %d days\n", days)
	fmt.Fprintln(f, strings.Repeat("=", 80))
	fmt.Fprintln(f)

	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.Timestamp, &e.ActionType, &e.PackageName,
			&e.PackageType, &e.Status, &e.Message, &e.ErrorDetails); err != nil {
			return err
		}

		fmt.Fprintf(f, "[%s] %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), strings.ToUpper(e.ActionType))
		fmt.Fprintf(f, "  Package: %s (%s)\n", e.PackageName, e.PackageType)
		fmt.Fprintf(f, "  Status: %s\n", e.Status)
		if e.Message != "" {
			fmt.Fprintf(f, "  Message: %s\n", e.Message)
		}
		if e.ErrorDetails != "" {
			fmt.Fprintf(f, "  Error: %s\n", e.ErrorDetails)
		}
		fmt.Fprintln(f, strings.Repeat("-", 80))
		fmt.Fprintln(f)
	}

	return rows.Err()
}
