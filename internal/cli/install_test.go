package cli

import (
	"path/filepath"
	"testing"

	"upm/internal/config"
	"upm/internal/store"
	"upm/pkg/source"
)

func setupTestState(t *testing.T) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "upm.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	prevCfg, prevDB := cfg, db
	cfg, db = config.Default(), s
	t.Cleanup(func() { cfg, db = prevCfg, prevDB })
}

func TestRecordActionSkipsDryRun(t *testing.T) {
	setupTestState(t)

	pkg := source.Package{SourceID: "vim", Name: "vim", Kind: source.KindApt}

	cfg.General.DryRun = true
	recordAction("install", pkg, nil)

	logs, err := db.Logs(10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Fatalf("dry run wrote %d log rows, want 0", len(logs))
	}

	cfg.General.DryRun = false
	recordAction("install", pkg, nil)

	logs, err = db.Logs(10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("recorded %d log rows, want 1", len(logs))
	}
	if logs[0].Status != "success" || logs[0].PackageName != "vim" {
		t.Errorf("log row = %+v", logs[0])
	}
}
