package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"upm/internal/executor"
)

func TestKindsOrder(t *testing.T) {
	kinds := Kinds()
	want := []Kind{KindApt, KindSnap, KindFlatpak}

	if len(kinds) != len(want) {
		t.Fatalf("Kinds() returned %d kinds, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Kinds()[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestPackageKey(t *testing.T) {
	a := Package{Kind: KindApt, SourceID: "firefox"}
	b := Package{Kind: KindSnap, SourceID: "firefox"}

	if a.Key() == b.Key() {
		t.Error("same id under different kinds must have distinct keys")
	}
	if a.Key() != (Package{Kind: KindApt, SourceID: "firefox"}).Key() {
		t.Error("identical (kind, id) pairs must share a key")
	}
}

func TestAPTParseSearchOutput(t *testing.T) {
	a := NewAPT(executor.New(false, false))

	output := `firefox - Safe and easy web browser from Mozilla
firefox-locale-en - English language pack for Firefox
vim - Vi IMproved - enhanced vi editor
not a valid line
`

	packages := a.parseSearchOutput(output, 0)
	if len(packages) != 3 {
		t.Fatalf("parsed %d packages, want 3", len(packages))
	}

	if packages[0].SourceID != "firefox" {
		t.Errorf("first package id = %q, want firefox", packages[0].SourceID)
	}
	if packages[0].Description != "Safe and easy web browser from Mozilla" {
		t.Errorf("first description = %q", packages[0].Description)
	}
	if packages[2].Description != "Vi IMproved - enhanced vi editor" {
		t.Errorf("description containing separator parsed as %q", packages[2].Description)
	}
	for _, p := range packages {
		if p.Kind != KindApt {
			t.Errorf("package %s kind = %s, want apt", p.SourceID, p.Kind)
		}
	}
}

func TestAPTParseSearchLimit(t *testing.T) {
	a := NewAPT(executor.New(false, false))

	output := "a - one\nb - two\nc - three\n"
	if got := len(a.parseSearchOutput(output, 2)); got != 2 {
		t.Errorf("parsed %d packages with limit 2, want 2", got)
	}
}

func TestAPTParseInstalledOutput(t *testing.T) {
	a := NewAPT(executor.New(false, false))

	output := "vim\t2:9.0\tinstall ok installed\n" +
		"removed-pkg\t1.0\tdeinstall ok config-files\n" +
		"git\t1:2.43\tinstall ok installed\n"

	packages := a.parseInstalledOutput(output)
	if len(packages) != 2 {
		t.Fatalf("parsed %d installed packages, want 2", len(packages))
	}
	for _, p := range packages {
		if !p.Installed {
			t.Errorf("package %s should be marked installed", p.SourceID)
		}
	}
}

func TestAPTParseInfoOutput(t *testing.T) {
	a := NewAPT(executor.New(false, false))

	output := `Package: vim
Version: 2:9.0.1378-2
Maintainer: Debian Vim Maintainers <team@tracker.debian.org>
Homepage: https://www.vim.org/
Section: editors
Depends: vim-common (= 2:9.0.1378-2), vim-runtime, libacl1 (>= 2.2.23)
Description-en: Vi IMproved - enhanced vi editor
`

	d := a.parseInfoOutput(output)
	if d.SourceID != "vim" || d.Version != "2:9.0.1378-2" {
		t.Errorf("parsed %q %q", d.SourceID, d.Version)
	}
	if d.Homepage != "https://www.vim.org/" {
		t.Errorf("homepage = %q", d.Homepage)
	}
	if len(d.Dependencies) != 3 || d.Dependencies[0] != "vim-common" {
		t.Errorf("dependencies = %v", d.Dependencies)
	}
}

func TestSnapParseFindOutput(t *testing.T) {
	s := NewSnap(executor.New(false, false))

	output := `Name      Version  Publisher  Notes  Summary
firefox   128.0    mozilla    -      Mozilla Firefox web browser
core22    20240111 canonical  base   Runtime environment based on Ubuntu 22.04
`

	packages := s.parseFindOutput(output, 0)
	if len(packages) != 2 {
		t.Fatalf("parsed %d snaps, want 2", len(packages))
	}

	first := packages[0]
	if first.SourceID != "firefox" || first.Version != "128.0" {
		t.Errorf("first snap = %q %q", first.SourceID, first.Version)
	}
	if first.Description != "Mozilla Firefox web browser" {
		t.Errorf("summary = %q", first.Description)
	}
	if first.Extra["publisher"] != "mozilla" {
		t.Errorf("publisher = %q", first.Extra["publisher"])
	}
}

// fakeCommand shadows name on PATH with a shell script for the duration of
// the test.
func fakeCommand(t *testing.T, name, body string) {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, name)
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestSnapSearchTimeoutIsAnError(t *testing.T) {
	fakeCommand(t, "snap", "sleep 5")

	s := NewSnap(executor.New(false, false))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	packages, err := s.Search(ctx, "vim", 10)
	if err == nil {
		t.Fatalf("Search past its deadline returned %d packages and no error", len(packages))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search error = %v, want deadline exceeded", err)
	}
}

func TestSnapSearchNoMatchIsEmpty(t *testing.T) {
	// snap find exits nonzero when nothing matches; that is not a failure.
	fakeCommand(t, "snap", "exit 1")

	s := NewSnap(executor.New(false, false))

	packages, err := s.Search(context.Background(), "no-such-snap", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(packages) != 0 {
		t.Errorf("Search returned %d packages, want 0", len(packages))
	}
}

func TestFlatpakParseSearchOutput(t *testing.T) {
	f := NewFlatpak(executor.New(false, false), nil)

	output := "Name\tDescription\tApplication ID\tVersion\tBranch\n" +
		"Firefox\tFast, Private & Safe Web Browser\torg.mozilla.firefox\t128.0\tstable\n" +
		"GIMP\tCreate images and edit photographs\torg.gimp.GIMP\t2.10.36\tstable\n"

	packages := f.parseSearchOutput(output, 0)
	if len(packages) != 2 {
		t.Fatalf("parsed %d flatpaks, want 2 (header must be skipped)", len(packages))
	}

	first := packages[0]
	if first.SourceID != "org.mozilla.firefox" {
		t.Errorf("app id = %q", first.SourceID)
	}
	if first.Name != "Firefox" || first.Version != "128.0" {
		t.Errorf("name/version = %q %q", first.Name, first.Version)
	}
	if first.Extra["branch"] != "stable" {
		t.Errorf("branch = %q", first.Extra["branch"])
	}
}

func TestFlatpakIDValidation(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"org.mozilla.firefox", true},
		{"com.valvesoftware.Steam", true},
		{"io.github.some-app_2", true},
		{"firefox", false},
		{"org.example.App; rm -rf /", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := flatpakIDPattern.MatchString(tc.id); got != tc.valid {
			t.Errorf("flatpak id %q valid = %v, want %v", tc.id, got, tc.valid)
		}
	}
}

func TestSnapNameValidation(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"firefox", true},
		{"core22", true},
		{"hello-world", true},
		{"Hello", false},
		{"pkg;rm -rf /", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := snapNamePattern.MatchString(tc.name); got != tc.valid {
			t.Errorf("snap name %q valid = %v, want %v", tc.name, got, tc.valid)
		}
	}
}

func TestAptNameValidation(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"vim", true},
		{"lib-test+dev-1.0", true},
		{"g++", true},
		{"pkg name", false},
		{"pkg$(whoami)", false},
	}

	for _, tc := range cases {
		if got := aptNamePattern.MatchString(tc.name); got != tc.valid {
			t.Errorf("apt name %q valid = %v, want %v", tc.name, got, tc.valid)
		}
	}
}
