// Package source provides the adapter abstraction over the three supported
// package backends: APT, Snap, and Flatpak.
package source

import "context"

// Kind identifies a package backend. The set is closed: the aggregator's
// priority order and the persistence schema both depend on exactly these
// three values existing.
type Kind string

const (
	KindApt     Kind = "apt"
	KindSnap    Kind = "snap"
	KindFlatpak Kind = "flatpak"
)

// Kinds returns all backend kinds in fixed priority order. Aggregation
// iterates sources in this order, so earlier kinds get more of the result
// budget when truncating.
func Kinds() []Kind {
	return []Kind{KindApt, KindSnap, KindFlatpak}
}

// Package is the normalized record all adapters map their native output
// into. Optional fields (Version, Description) are empty strings when
// unknown, never absent.
type Package struct {
	SourceID    string            `json:"source_id"` // adapter-native identifier
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Kind        Kind              `json:"kind"`
	SourceLabel string            `json:"source_label"` // e.g. "Ubuntu/APT"
	Installed   bool              `json:"installed"`
	Extra       map[string]string `json:"extra,omitempty"` // branch, publisher, revision
}

// Key returns the identity used for deduplication. SourceID is only unique
// within a Kind; two backends may report the same display name under
// different identities and both must survive a merge.
func (p Package) Key() string {
	return string(p.Kind) + "/" + p.SourceID
}

// Details carries the extended fields returned by an adapter's Info call.
type Details struct {
	Package
	Homepage     string   `json:"homepage"`
	License      string   `json:"license"`
	Maintainer   string   `json:"maintainer"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Adapter is the capability surface of a single package backend. All
// blocking operations take a context; timeouts are enforced inside the
// adapter, not by callers.
type Adapter interface {
	// Name returns the short identifier ("apt", "snap", "flatpak").
	Name() string

	// Kind returns which backend this adapter drives.
	Kind() Kind

	// SourceLabel returns the human-readable provenance string.
	SourceLabel() string

	// IsAvailable reports whether the backend is installed and usable.
	IsAvailable() bool

	// Search finds packages matching the query, returning at most limit
	// results when limit > 0. Callers must still cap the returned slice
	// defensively.
	Search(ctx context.Context, query string, limit int) ([]Package, error)

	// Install installs the package identified by its adapter-native id.
	Install(ctx context.Context, id string) error

	// Remove uninstalls the package identified by its adapter-native id.
	Remove(ctx context.Context, id string) error

	// ListInstalled returns all packages currently installed through this
	// backend.
	ListInstalled(ctx context.Context) ([]Package, error)

	// Info returns detailed information about a single package.
	Info(ctx context.Context, id string) (*Details, error)
}
