package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"upm/internal/ratelimit"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Check default output settings
	if !cfg.Output.Color {
		t.Error("expected Color to be true by default")
	}
	if !cfg.Output.Unicode {
		t.Error("expected Unicode to be true by default")
	}
	if cfg.Output.Verbose {
		t.Error("expected Verbose to be false by default")
	}

	// Check general settings
	if cfg.General.AutoConfirm {
		t.Error("expected AutoConfirm to be false by default")
	}
	if cfg.General.DryRun {
		t.Error("expected DryRun to be false by default")
	}

	if cfg.Flathub.APIBaseURL == "" {
		t.Error("expected a default Flathub API base URL")
	}
	if cfg.CacheTTL() != 15*time.Minute {
		t.Errorf("default cache TTL = %s, want 15m", cfg.CacheTTL())
	}
}

func TestResolveAlias(t *testing.T) {
	cfg := &Config{
		Aliases: map[string]string{
			"vim":  "neovim",
			"code": "visual-studio-code",
		},
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"vim", "neovim"},
		{"code", "visual-studio-code"},
		{"git", "git"}, // No alias, returns original
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := cfg.ResolveAlias(tt.input)
			if result != tt.expected {
				t.Errorf("ResolveAlias(%s) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolveAliases(t *testing.T) {
	cfg := &Config{
		Aliases: map[string]string{
			"vim": "neovim",
		},
	}

	input := []string{"vim", "git", "curl"}
	expected := []string{"neovim", "git", "curl"}

	result := cfg.ResolveAliases(input)

	if len(result) != len(expected) {
		t.Fatalf("expected %d results, got %d", len(expected), len(result))
	}

	for i, r := range result {
		if r != expected[i] {
			t.Errorf("result[%d] = %s, want %s", i, r, expected[i])
		}
	}
}

func TestLimitPolicies(t *testing.T) {
	cfg := &Config{
		Limits: map[string]LimitConfig{
			"search":  {MaxRequests: 25, WindowSeconds: 120},
			"install": {MaxRequests: 0, WindowSeconds: 60},  // ignored: zero budget
			"flathub": {MaxRequests: 10, WindowSeconds: -5}, // ignored: bad window
		},
	}

	policies := cfg.LimitPolicies()

	if len(policies) != 1 {
		t.Fatalf("expected 1 valid policy, got %d", len(policies))
	}
	want := ratelimit.Policy{MaxRequests: 25, Window: 2 * time.Minute}
	if policies["search"] != want {
		t.Errorf("search policy = %+v, want %+v", policies["search"], want)
	}
}

func TestShouldUseColor(t *testing.T) {
	cfg := &Config{
		Output: OutputConfig{Color: true},
	}

	// Should return true when Color is true and NO_COLOR is not set
	os.Unsetenv("NO_COLOR")
	if !cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return true")
	}

	// Should return false when NO_COLOR is set
	os.Setenv("NO_COLOR", "1")
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when NO_COLOR is set")
	}
	os.Unsetenv("NO_COLOR")

	// Should return false when Color is false
	cfg.Output.Color = false
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when Color is false")
	}
}

func TestLoadSaveConfig(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	// Create and save config
	cfg := Default()
	cfg.Aliases["test"] = "test-package"
	cfg.Limits["search"] = LimitConfig{MaxRequests: 5, WindowSeconds: 30}

	err := cfg.SaveTo(configPath)
	if err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	// Load config
	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	// Verify loaded config
	if loaded.ResolveAlias("test") != "test-package" {
		t.Error("loaded config doesn't have expected alias")
	}
	if loaded.Limits["search"].MaxRequests != 5 {
		t.Error("loaded config doesn't have expected limit override")
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	// Loading non-existent file should return default config
	cfg, err := LoadFrom("/non/existent/path/config.toml")
	if err != nil {
		t.Fatalf("LoadFrom() should not error for non-existent file: %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadFrom() should return default config for non-existent file")
	}

	// Should have default values
	if !cfg.Output.Color {
		t.Error("expected default Color to be true")
	}
}
