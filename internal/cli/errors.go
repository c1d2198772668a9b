package cli

import "errors"

var (
	// ErrNoPackages is returned when no packages are specified.
	ErrNoPackages = errors.New("no packages specified")

	// ErrSourceNotFound is returned when the specified source does not exist.
	ErrSourceNotFound = errors.New("unknown package source; valid sources are apt, snap, flatpak")

	// ErrSourceDisabled is returned when the specified source is turned off
	// in preferences.
	ErrSourceDisabled = errors.New("package source is disabled; enable it with 'upm prefs set'")

	// ErrSourceUnavailable is returned when the specified source's backend
	// is not installed or not running.
	ErrSourceUnavailable = errors.New("package source is not available on this system")

	// ErrPackageNotFound is returned when a package cannot be found.
	ErrPackageNotFound = errors.New("package not found in any enabled source")

	// ErrAborted is returned when the user aborts an operation.
	ErrAborted = errors.New("operation aborted by user")
)
