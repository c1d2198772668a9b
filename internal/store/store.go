// Package store persists installed-app records, user preferences, and action
// logs in SQLite.
//
// A Store is safe for concurrent use from multiple worker goroutines;
// database/sql manages per-connection state, so workers never share a
// cursor.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrUnknownPreference is returned when a preference key is not in the fixed
// whitelist. The whitelist is a data-integrity boundary: keys are column
// names, and nothing outside the known set may ever reach a query.
var ErrUnknownPreference = errors.New("unknown preference key")

// ErrCorrupted is returned when the preferences singleton cannot be read
// even after a self-heal attempt.
var ErrCorrupted = errors.New("preferences storage corrupted")

// prefColumns is the fixed preference whitelist. Keys map 1:1 to columns of
// the user_prefs singleton row.
var prefColumns = map[string]bool{
	"repo_flathub_enabled":  true,
	"repo_snapd_enabled":    true,
	"repo_apt_enabled":      true,
	"notifications_enabled": true,
	"log_retention_days":    true,
	"auto_save_metadata":    true,
}

// Preferences holds the singleton user preference row.
type Preferences struct {
	FlathubEnabled       bool
	SnapdEnabled         bool
	AptEnabled           bool
	NotificationsEnabled bool
	LogRetentionDays     int
	AutoSaveMetadata     bool
}

// InstalledApp is one row of the installed_apps table. DeletedAt is non-nil
// for soft-deleted rows; at most one row per package name is active at a
// time, but a reinstall after removal always creates a fresh row.
type InstalledApp struct {
	ID          int64
	Name        string
	PackageName string
	PackageType string
	SourceRepo  string
	Version     string
	Description string
	InstallDate time.Time
	DeletedAt   *time.Time
}

// LogEntry is one action-log record.
type LogEntry struct {
	ID           int64
	Timestamp    time.Time
	ActionType   string
	PackageName  string
	PackageType  string
	Status       string
	Message      string
	ErrorDetails string
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS installed_apps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			package_name TEXT NOT NULL,
			package_type TEXT NOT NULL,
			source_repo TEXT NOT NULL,
			version TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			install_date DATETIME NOT NULL,
			deleted_at DATETIME
		)`,
		// Uniqueness holds for active rows only; soft-deleted rows may pile
		// up under a reused package name.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_installed_active
			ON installed_apps(package_name) WHERE deleted_at IS NULL`,
		`CREATE TABLE IF NOT EXISTS user_prefs (
			id INTEGER PRIMARY KEY,
			repo_flathub_enabled BOOLEAN NOT NULL DEFAULT 1,
			repo_snapd_enabled BOOLEAN NOT NULL DEFAULT 1,
			repo_apt_enabled BOOLEAN NOT NULL DEFAULT 1,
			notifications_enabled BOOLEAN NOT NULL DEFAULT 1,
			log_retention_days INTEGER NOT NULL DEFAULT 30,
			auto_save_metadata BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			action_type TEXT NOT NULL,
			package_name TEXT NOT NULL DEFAULT '',
			package_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			error_details TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_installed_package
			ON installed_apps(package_name)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return s.ensurePrefsRow()
}

func (s *Store) ensurePrefsRow() error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO user_prefs (id) VALUES (1)`)
	if err != nil {
		return fmt.Errorf("failed to initialize preferences: %w", err)
	}
	return nil
}

// AddInstalledApp records a newly installed app. It returns false without
// error when an active row for the package name already exists, so install
// callbacks can be replayed safely.
func (s *Store) AddInstalledApp(app InstalledApp) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM installed_apps WHERE package_name = ? AND deleted_at IS NULL`,
		app.PackageName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check installed state: %w", err)
	}
	if exists > 0 {
		return false, nil
	}

	installDate := app.InstallDate
	if installDate.IsZero() {
		installDate = time.Now().UTC()
	}

	_, err = tx.Exec(
		`INSERT INTO installed_apps (name, package_name, package_type, source_repo, version, description, install_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		app.Name, app.PackageName, app.PackageType, app.SourceRepo,
		app.Version, app.Description, installDate,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record installed app: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveInstalledApp soft-deletes the active row for a package. Removing a
// package with no active row is a no-op, not an error.
func (s *Store) RemoveInstalledApp(packageName string) error {
	_, err := s.db.Exec(
		`UPDATE installed_apps SET deleted_at = ? WHERE package_name = ? AND deleted_at IS NULL`,
		time.Now().UTC(), packageName,
	)
	if err != nil {
		return fmt.Errorf("failed to remove installed app: %w", err)
	}
	return nil
}

// IsAppInstalled reports whether an active (not soft-deleted) row exists for
// the package name.
func (s *Store) IsAppInstalled(packageName string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM installed_apps WHERE package_name = ? AND deleted_at IS NULL`,
		packageName,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query installed state: %w", err)
	}
	return count > 0, nil
}

// InstalledApps returns active rows, optionally filtered by package type,
// ordered by display name.
func (s *Store) InstalledApps(packageType string) ([]InstalledApp, error) {
	query := `SELECT id, name, package_name, package_type, source_repo, version, description, install_date, deleted_at
		FROM installed_apps WHERE deleted_at IS NULL`
	args := []any{}
	if packageType != "" {
		query += ` AND package_type = ?`
		args = append(args, packageType)
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed apps: %w", err)
	}
	defer rows.Close()

	var apps []InstalledApp
	for rows.Next() {
		var app InstalledApp
		var deletedAt sql.NullTime
		if err := rows.Scan(&app.ID, &app.Name, &app.PackageName, &app.PackageType,
			&app.SourceRepo, &app.Version, &app.Description, &app.InstallDate, &deletedAt); err != nil {
			return nil, err
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			app.DeletedAt = &t
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// Preferences returns the singleton preference row. A missing row is
// recreated with defaults and read once more; a second miss means the
// storage is corrupted beyond self-healing.
func (s *Store) Preferences() (Preferences, error) {
	prefs, err := s.readPrefs()
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, err
	}

	if err := s.ensurePrefsRow(); err != nil {
		return Preferences{}, err
	}

	prefs, err = s.readPrefs()
	if err != nil {
		return Preferences{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return prefs, nil
}

func (s *Store) readPrefs() (Preferences, error) {
	var p Preferences
	err := s.db.QueryRow(
		`SELECT repo_flathub_enabled, repo_snapd_enabled, repo_apt_enabled,
			notifications_enabled, log_retention_days, auto_save_metadata
		 FROM user_prefs WHERE id = 1`,
	).Scan(&p.FlathubEnabled, &p.SnapdEnabled, &p.AptEnabled,
		&p.NotificationsEnabled, &p.LogRetentionDays, &p.AutoSaveMetadata)
	if err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// SetPreference updates one whitelisted preference. The key is validated
// against the fixed column set before any SQL is built; an unknown key is a
// rejected operation, never silently dropped.
func (s *Store) SetPreference(key string, value any) error {
	if !prefColumns[key] {
		return fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}

	_, err := s.db.Exec(`UPDATE user_prefs SET `+key+` = ? WHERE id = 1`, value)
	if err != nil {
		return fmt.Errorf("failed to update preference %s: %w", key, err)
	}
	return nil
}

// PreferenceKeys returns the whitelisted key set, sorted for display.
func PreferenceKeys() []string {
	keys := make([]string, 0, len(prefColumns))
	for k := range prefColumns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddLog appends an action-log entry.
func (s *Store) AddLog(e LogEntry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO logs (timestamp, action_type, package_name, package_type, status, message, error_details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts, e.ActionType, e.PackageName, e.PackageType, e.Status, e.Message, e.ErrorDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to add log entry: %w", err)
	}
	return nil
}

// Logs returns the most recent entries, optionally filtered by action type.
func (s *Store) Logs(limit int, actionType string) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, timestamp, action_type, package_name, package_type, status, message, error_details
		FROM logs`
	args := []any{}
	if actionType != "" {
		query += ` WHERE action_type = ?`
		args = append(args, actionType)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActionType, &e.PackageName,
			&e.PackageType, &e.Status, &e.Message, &e.ErrorDetails); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CleanupOldLogs deletes entries older than the retention period from
// preferences and returns how many were removed.
func (s *Store) CleanupOldLogs() (int64, error) {
	prefs, err := s.Preferences()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -prefs.LogRetentionDays)
	res, err := s.db.Exec(`DELETE FROM logs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up logs: %w", err)
	}
	return res.RowsAffected()
}
