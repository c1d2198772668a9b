package aggregate

import (
	"context"
	"errors"
	"strings"

	"upm/internal/ratelimit"
	"upm/internal/store"
	"upm/pkg/source"
)

// Budgets for one merged search. The per-source cap keeps a chatty backend
// from crowding the others out; the total cap bounds what the UI renders.
const (
	MaxTotalResults = 450
	MaxPerSource    = 150
)

// ErrNoSources is returned when not a single backend could be queried:
// everything was disabled, missing, or throttled. Per-source failures do
// not produce it; those are reported in the outcomes instead.
var ErrNoSources = errors.New("no package sources available")

// StateStore is the slice of the persistence layer the aggregator needs.
type StateStore interface {
	Preferences() (store.Preferences, error)
	IsAppInstalled(name string) (bool, error)
}

// Aggregator fans a query out to the registered package sources in a fixed
// priority order and merges the results into a single deduplicated list.
type Aggregator struct {
	adapters []source.Adapter
	limits   *ratelimit.Registry
	store    StateStore
}

// New builds an aggregator over the given adapters. The adapter slice
// order is the query order; pass them sorted by source.Kinds().
func New(adapters []source.Adapter, limits *ratelimit.Registry, st StateStore) *Aggregator {
	return &Aggregator{adapters: adapters, limits: limits, store: st}
}

// Search queries every enabled, available source for the given term and
// merges the results. An empty query returns an empty report before any
// rate limit token is consumed. One source failing never aborts the pass;
// its outcome records the error and the remaining sources still run.
func (a *Aggregator) Search(ctx context.Context, query string) (*Report, error) {
	query = strings.TrimSpace(query)
	report := &Report{}
	if query == "" {
		return report, nil
	}

	prefs, err := a.store.Preferences()
	if err != nil {
		return nil, err
	}
	if denied := a.limits.Allow(ratelimit.KeySearch); denied != nil {
		return nil, denied
	}

	seen := make(map[string]bool)
	for _, ad := range a.adapters {
		kind := ad.Kind()
		if len(report.Packages) >= MaxTotalResults {
			report.Outcomes = append(report.Outcomes, Outcome{Kind: kind, Status: StatusSkipped})
			continue
		}
		if !sourceEnabled(prefs, kind) {
			report.Outcomes = append(report.Outcomes, Outcome{Kind: kind, Status: StatusDisabled})
			continue
		}
		if !ad.IsAvailable() {
			report.Outcomes = append(report.Outcomes, Outcome{Kind: kind, Status: StatusUnavailable})
			continue
		}

		remaining := MaxTotalResults - len(report.Packages)
		limit := MaxPerSource
		if remaining < limit {
			limit = remaining
		}

		pkgs, err := a.query(ctx, ad, query, limit)
		if err != nil {
			var denied *ratelimit.DeniedError
			if errors.As(err, &denied) {
				report.Outcomes = append(report.Outcomes, Outcome{Kind: kind, Status: StatusDenied, Wait: denied.Wait})
			} else {
				report.Outcomes = append(report.Outcomes, Outcome{Kind: kind, Status: StatusFailed, Err: err})
			}
			continue
		}

		added := 0
		for _, p := range pkgs {
			if added >= limit {
				break
			}
			p = normalize(p, ad)
			if p.SourceID == "" || seen[p.Key()] {
				continue
			}
			seen[p.Key()] = true
			report.Packages = append(report.Packages, p)
			added++
		}
		report.Outcomes = append(report.Outcomes, Outcome{Kind: kind, Status: StatusOK, Count: added})
	}

	if len(report.Packages) > MaxTotalResults {
		report.Packages = report.Packages[:MaxTotalResults]
	}

	if !anyQueried(report.Outcomes) {
		return report, ErrNoSources
	}

	a.annotateInstalled(ctx, report)
	return report, nil
}

// query runs one adapter's search, consuming that adapter's limiter key
// first where one is configured. Flatpak's remote API carries its own
// adaptive limiter inside the client, so only snap is throttled here.
func (a *Aggregator) query(ctx context.Context, ad source.Adapter, query string, limit int) ([]source.Package, error) {
	if key := limiterKey(ad.Kind()); key != "" {
		if denied := a.limits.Allow(key); denied != nil {
			return nil, denied
		}
	}
	return ad.Search(ctx, query, limit)
}

// annotateInstalled marks merged packages that are already installed. Each
// source is asked once for its installed set; if that listing fails, the
// local store is consulted per package instead.
func (a *Aggregator) annotateInstalled(ctx context.Context, report *Report) {
	byKind := make(map[source.Kind]map[string]bool)
	listFailed := make(map[source.Kind]bool)
	for _, ad := range a.adapters {
		if out, ok := report.Outcome(ad.Kind()); !ok || out.Status != StatusOK || out.Count == 0 {
			continue
		}
		installed, err := ad.ListInstalled(ctx)
		if err != nil {
			listFailed[ad.Kind()] = true
			continue
		}
		set := make(map[string]bool, len(installed))
		for _, p := range installed {
			set[p.SourceID] = true
			if p.Name != "" {
				set[p.Name] = true
			}
		}
		byKind[ad.Kind()] = set
	}

	for i := range report.Packages {
		p := &report.Packages[i]
		if set, ok := byKind[p.Kind]; ok {
			p.Installed = set[p.SourceID] || set[p.Name]
			continue
		}
		if listFailed[p.Kind] {
			if ok, err := a.store.IsAppInstalled(p.Name); err == nil {
				p.Installed = ok
			}
		}
	}
}

func normalize(p source.Package, ad source.Adapter) source.Package {
	if p.Kind == "" {
		p.Kind = ad.Kind()
	}
	if p.SourceLabel == "" {
		p.SourceLabel = ad.SourceLabel()
	}
	if p.Name == "" {
		p.Name = p.SourceID
	}
	return p
}

func sourceEnabled(prefs store.Preferences, kind source.Kind) bool {
	switch kind {
	case source.KindApt:
		return prefs.AptEnabled
	case source.KindSnap:
		return prefs.SnapdEnabled
	case source.KindFlatpak:
		return prefs.FlathubEnabled
	}
	return false
}

func limiterKey(kind source.Kind) string {
	if kind == source.KindSnap {
		return ratelimit.KeySnap
	}
	return ""
}

func anyQueried(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Status == StatusOK || o.Status == StatusFailed {
			return true
		}
	}
	return false
}
