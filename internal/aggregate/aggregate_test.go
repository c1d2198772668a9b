package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"upm/internal/ratelimit"
	"upm/internal/store"
	"upm/pkg/source"
)

type fakeAdapter struct {
	kind      source.Kind
	available bool
	results   []source.Package
	searchErr error
	installed []source.Package
	listErr   error
	searches  int
}

func (f *fakeAdapter) Name() string        { return string(f.kind) }
func (f *fakeAdapter) Kind() source.Kind   { return f.kind }
func (f *fakeAdapter) SourceLabel() string { return "test/" + string(f.kind) }
func (f *fakeAdapter) IsAvailable() bool   { return f.available }

func (f *fakeAdapter) Search(ctx context.Context, query string, limit int) ([]source.Package, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit > 0 && len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeAdapter) Install(ctx context.Context, id string) error { return nil }
func (f *fakeAdapter) Remove(ctx context.Context, id string) error  { return nil }

func (f *fakeAdapter) ListInstalled(ctx context.Context) ([]source.Package, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.installed, nil
}

func (f *fakeAdapter) Info(ctx context.Context, id string) (*source.Details, error) {
	return nil, errors.New("not implemented")
}

type fakeStore struct {
	prefs     store.Preferences
	prefsErr  error
	installed map[string]bool
	lookups   int
}

func (s *fakeStore) Preferences() (store.Preferences, error) {
	return s.prefs, s.prefsErr
}

func (s *fakeStore) IsAppInstalled(name string) (bool, error) {
	s.lookups++
	return s.installed[name], nil
}

func allEnabled() store.Preferences {
	return store.Preferences{FlathubEnabled: true, SnapdEnabled: true, AptEnabled: true}
}

func pkgs(kind source.Kind, n int) []source.Package {
	out := make([]source.Package, n)
	for i := range out {
		out[i] = source.Package{
			SourceID: fmt.Sprintf("%s-pkg-%d", kind, i),
			Name:     fmt.Sprintf("%s-pkg-%d", kind, i),
			Kind:     kind,
		}
	}
	return out
}

func newTestAggregator(adapters ...*fakeAdapter) (*Aggregator, *fakeStore) {
	st := &fakeStore{prefs: allEnabled(), installed: map[string]bool{}}
	ifaces := make([]source.Adapter, len(adapters))
	for i, a := range adapters {
		ifaces[i] = a
	}
	return New(ifaces, ratelimit.NewRegistry(nil), st), st
}

func TestSearchMergesInPriorityOrder(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true, results: pkgs(source.KindApt, 2)}
	snap := &fakeAdapter{kind: source.KindSnap, available: true, results: pkgs(source.KindSnap, 2)}
	flatpak := &fakeAdapter{kind: source.KindFlatpak, available: true, results: pkgs(source.KindFlatpak, 2)}

	agg, _ := newTestAggregator(apt, snap, flatpak)
	report, err := agg.Search(context.Background(), "editor")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(report.Packages) != 6 {
		t.Fatalf("expected 6 merged packages, got %d", len(report.Packages))
	}
	wantOrder := []source.Kind{
		source.KindApt, source.KindApt,
		source.KindSnap, source.KindSnap,
		source.KindFlatpak, source.KindFlatpak,
	}
	for i, kind := range wantOrder {
		if report.Packages[i].Kind != kind {
			t.Errorf("position %d: expected %s, got %s", i, kind, report.Packages[i].Kind)
		}
	}
	if report.Queried() != 3 {
		t.Errorf("expected 3 sources queried, got %d", report.Queried())
	}
}

func TestSearchEmptyQuerySkipsEverything(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true, results: pkgs(source.KindApt, 2)}
	agg, _ := newTestAggregator(apt)

	for _, q := range []string{"", "   ", "\t\n"} {
		report, err := agg.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("query %q: %v", q, err)
		}
		if len(report.Packages) != 0 || len(report.Outcomes) != 0 {
			t.Errorf("query %q: expected empty report", q)
		}
	}
	if apt.searches != 0 {
		t.Errorf("adapter was queried for an empty query")
	}

	// Empty queries must not consume search tokens: the budget of 10 from
	// the default policy should still fully admit real queries.
	for i := 0; i < 10; i++ {
		if _, err := agg.Search(context.Background(), "vim"); err != nil {
			t.Fatalf("real query %d unexpectedly throttled: %v", i, err)
		}
	}
}

func TestSearchOneSourceFailingDoesNotAbort(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true, searchErr: errors.New("apt-cache exploded")}
	snap := &fakeAdapter{kind: source.KindSnap, available: true, results: pkgs(source.KindSnap, 3)}

	agg, _ := newTestAggregator(apt, snap)
	report, err := agg.Search(context.Background(), "editor")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(report.Packages) != 3 {
		t.Fatalf("expected snap's 3 results, got %d", len(report.Packages))
	}
	out, ok := report.Outcome(source.KindApt)
	if !ok || out.Status != StatusFailed {
		t.Fatalf("apt outcome = %+v, want StatusFailed", out)
	}
	if out.Err == nil {
		t.Error("failed outcome should carry the error")
	}
}

func TestSearchDisabledAndUnavailableSources(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true, results: pkgs(source.KindApt, 1)}
	snap := &fakeAdapter{kind: source.KindSnap, available: false}
	flatpak := &fakeAdapter{kind: source.KindFlatpak, available: true, results: pkgs(source.KindFlatpak, 1)}

	agg, st := newTestAggregator(apt, snap, flatpak)
	st.prefs.FlathubEnabled = false

	report, err := agg.Search(context.Background(), "editor")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if out, _ := report.Outcome(source.KindSnap); out.Status != StatusUnavailable {
		t.Errorf("snap status = %s, want unavailable", out.Status)
	}
	if out, _ := report.Outcome(source.KindFlatpak); out.Status != StatusDisabled {
		t.Errorf("flatpak status = %s, want disabled", out.Status)
	}
	if flatpak.searches != 0 {
		t.Error("disabled source was queried")
	}
	if len(report.Packages) != 1 {
		t.Errorf("expected apt's single result, got %d packages", len(report.Packages))
	}
}

func TestSearchErrNoSources(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: false}
	snap := &fakeAdapter{kind: source.KindSnap, available: false}

	agg, st := newTestAggregator(apt, snap)
	st.prefs.SnapdEnabled = false

	report, err := agg.Search(context.Background(), "editor")
	if !errors.Is(err, ErrNoSources) {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
	if report == nil || len(report.Outcomes) != 2 {
		t.Fatal("report with outcomes should still be returned alongside ErrNoSources")
	}
}

func TestSearchPerSourceCap(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true, results: pkgs(source.KindApt, MaxPerSource+50)}
	snap := &fakeAdapter{kind: source.KindSnap, available: true, results: pkgs(source.KindSnap, 10)}

	agg, _ := newTestAggregator(apt, snap)
	report, err := agg.Search(context.Background(), "lib")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	out, _ := report.Outcome(source.KindApt)
	if out.Count != MaxPerSource {
		t.Errorf("apt contributed %d, want %d", out.Count, MaxPerSource)
	}
	if len(report.Packages) != MaxPerSource+10 {
		t.Errorf("total = %d, want %d", len(report.Packages), MaxPerSource+10)
	}
}

func TestSearchTotalBudgetSkipsLaterSources(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true, results: pkgs(source.KindApt, MaxPerSource)}
	snap := &fakeAdapter{kind: source.KindSnap, available: true, results: pkgs(source.KindSnap, MaxPerSource)}
	flatpak := &fakeAdapter{kind: source.KindFlatpak, available: true, results: pkgs(source.KindFlatpak, MaxPerSource+100)}

	agg, _ := newTestAggregator(apt, snap, flatpak)
	report, err := agg.Search(context.Background(), "lib")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(report.Packages) != MaxTotalResults {
		t.Fatalf("total = %d, want %d", len(report.Packages), MaxTotalResults)
	}
	out, _ := report.Outcome(source.KindFlatpak)
	if out.Status != StatusOK || out.Count != MaxTotalResults-2*MaxPerSource {
		t.Errorf("flatpak outcome = %+v, want %d results under the remaining budget",
			out, MaxTotalResults-2*MaxPerSource)
	}
}

func TestSearchDeduplicates(t *testing.T) {
	dup := source.Package{SourceID: "vim", Name: "vim", Kind: source.KindApt}
	apt := &fakeAdapter{kind: source.KindApt, available: true,
		results: []source.Package{dup, dup, {SourceID: "vim-tiny", Name: "vim-tiny", Kind: source.KindApt}}}
	// Same SourceID under a different kind is a distinct package.
	snap := &fakeAdapter{kind: source.KindSnap, available: true,
		results: []source.Package{{SourceID: "vim", Name: "vim", Kind: source.KindSnap}}}

	agg, _ := newTestAggregator(apt, snap)
	report, err := agg.Search(context.Background(), "vim")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(report.Packages) != 3 {
		t.Fatalf("expected 3 after dedup, got %d", len(report.Packages))
	}
}

func TestSearchDeniedSourceIsNotAFailure(t *testing.T) {
	denied := &ratelimit.DeniedError{Key: ratelimit.KeyFlathub, Wait: 30 * time.Second}
	apt := &fakeAdapter{kind: source.KindApt, available: true, results: pkgs(source.KindApt, 1)}
	flatpak := &fakeAdapter{kind: source.KindFlatpak, available: true, searchErr: denied}

	agg, _ := newTestAggregator(apt, flatpak)
	report, err := agg.Search(context.Background(), "editor")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	out, _ := report.Outcome(source.KindFlatpak)
	if out.Status != StatusDenied {
		t.Fatalf("flatpak status = %s, want denied", out.Status)
	}
	if out.Wait != 30*time.Second {
		t.Errorf("denied wait = %s, want 30s", out.Wait)
	}
	if out.Err != nil {
		t.Error("denied outcome must not carry an error")
	}
}

func TestSearchGlobalLimiterDenies(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true, results: pkgs(source.KindApt, 1)}
	st := &fakeStore{prefs: allEnabled(), installed: map[string]bool{}}
	reg := ratelimit.NewRegistry(map[string]ratelimit.Policy{
		ratelimit.KeySearch: {MaxRequests: 2, Window: time.Minute},
	})
	agg := New([]source.Adapter{apt}, reg, st)

	for i := 0; i < 2; i++ {
		if _, err := agg.Search(context.Background(), "vim"); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	_, err := agg.Search(context.Background(), "vim")
	var denied *ratelimit.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected DeniedError, got %v", err)
	}
	if denied.Key != ratelimit.KeySearch {
		t.Errorf("denied key = %s, want %s", denied.Key, ratelimit.KeySearch)
	}
	if apt.searches != 2 {
		t.Errorf("adapters searched %d times, want 2", apt.searches)
	}
}

func TestSearchAnnotatesInstalled(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true,
		results:   pkgs(source.KindApt, 3),
		installed: []source.Package{{SourceID: "apt-pkg-1", Name: "apt-pkg-1", Kind: source.KindApt}}}

	agg, _ := newTestAggregator(apt)
	report, err := agg.Search(context.Background(), "pkg")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	for _, p := range report.Packages {
		want := p.SourceID == "apt-pkg-1"
		if p.Installed != want {
			t.Errorf("%s: installed = %v, want %v", p.SourceID, p.Installed, want)
		}
	}
}

func TestSearchInstalledFallsBackToStore(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true,
		results: pkgs(source.KindApt, 2),
		listErr: errors.New("dpkg-query failed")}

	agg, st := newTestAggregator(apt)
	st.installed["apt-pkg-0"] = true

	report, err := agg.Search(context.Background(), "pkg")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !report.Packages[0].Installed {
		t.Error("store-known package not marked installed")
	}
	if report.Packages[1].Installed {
		t.Error("unknown package marked installed")
	}
	if st.lookups != 2 {
		t.Errorf("store consulted %d times, want once per package", st.lookups)
	}
}

func TestSearchNormalizesAdapterOutput(t *testing.T) {
	apt := &fakeAdapter{kind: source.KindApt, available: true,
		results: []source.Package{
			{SourceID: "htop"},   // no kind, label, or name
			{SourceID: ""},       // dropped: no identity
			{SourceID: "ripgrep", Name: "ripgrep"},
		}}

	agg, _ := newTestAggregator(apt)
	report, err := agg.Search(context.Background(), "tools")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(report.Packages) != 2 {
		t.Fatalf("expected identity-less package dropped, got %d results", len(report.Packages))
	}
	first := report.Packages[0]
	if first.Kind != source.KindApt || first.SourceLabel != "test/apt" || first.Name != "htop" {
		t.Errorf("normalization incomplete: %+v", first)
	}
}
