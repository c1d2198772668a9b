package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"upm/internal/ratelimit"
)

// Config represents the complete upm configuration. Source enable/disable
// state lives in the preferences table of the local database, not here;
// the config file only holds settings that make sense to edit by hand.
type Config struct {
	General GeneralConfig          `toml:"general"`
	Output  OutputConfig           `toml:"output"`
	Flathub FlathubConfig          `toml:"flathub"`
	Limits  map[string]LimitConfig `toml:"limits"`
	Aliases map[string]string      `toml:"aliases"`
}

// GeneralConfig contains general upm settings.
type GeneralConfig struct {
	// AutoConfirm skips confirmation prompts when true (like -y flag).
	AutoConfirm bool `toml:"auto_confirm"`

	// DryRun shows what would happen without executing when true.
	DryRun bool `toml:"dry_run"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	// Color enables colored output (respects NO_COLOR env var).
	Color bool `toml:"color"`

	// Unicode enables unicode symbols in output.
	Unicode bool `toml:"unicode"`

	// Verbose enables detailed output.
	Verbose bool `toml:"verbose"`
}

// FlathubConfig controls the Flathub web API client.
type FlathubConfig struct {
	// APIBaseURL overrides the Flathub API endpoint. Mostly for testing.
	APIBaseURL string `toml:"api_base_url"`

	// CacheTTLMinutes is how long API responses are served from the local
	// cache before being fetched again.
	CacheTTLMinutes int `toml:"cache_ttl_minutes"`
}

// LimitConfig overrides one named rate limiter's budget. Keys match the
// limiter names: "search", "install", "flathub", "snap", "default".
type LimitConfig struct {
	MaxRequests   int `toml:"max_requests"`
	WindowSeconds int `toml:"window_seconds"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			AutoConfirm: false,
			DryRun:      false,
		},
		Output: OutputConfig{
			Color:   true,
			Unicode: true,
			Verbose: false,
		},
		Flathub: FlathubConfig{
			APIBaseURL:      "https://flathub.org/api/v2",
			CacheTTLMinutes: 15,
		},
		Limits:  map[string]LimitConfig{},
		Aliases: map[string]string{},
	}
}

// Load loads the configuration from the default path.
// If the config file doesn't exist, it returns the default configuration.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads the configuration from a specific path.
// If the config file doesn't exist, it returns the default configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// LimitPolicies converts the [limits] table into rate limiter policies.
// Entries with a non-positive budget or window are ignored, so a partial
// or sloppy config can never zero out a limiter.
func (c *Config) LimitPolicies() map[string]ratelimit.Policy {
	policies := make(map[string]ratelimit.Policy, len(c.Limits))
	for key, lc := range c.Limits {
		if lc.MaxRequests <= 0 || lc.WindowSeconds <= 0 {
			continue
		}
		policies[key] = ratelimit.Policy{
			MaxRequests: lc.MaxRequests,
			Window:      time.Duration(lc.WindowSeconds) * time.Second,
		}
	}
	return policies
}

// CacheTTL returns the Flathub cache lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	minutes := c.Flathub.CacheTTLMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

// ResolveAlias returns the actual package name for an alias, or the original name if no alias exists.
func (c *Config) ResolveAlias(pkg string) string {
	if alias, ok := c.Aliases[pkg]; ok {
		return alias
	}
	return pkg
}

// ResolveAliases resolves all aliases in a list of package names.
func (c *Config) ResolveAliases(packages []string) []string {
	resolved := make([]string, len(packages))
	for i, pkg := range packages {
		resolved[i] = c.ResolveAlias(pkg)
	}
	return resolved
}

// ShouldUseColor returns true if colored output should be used.
// Respects the NO_COLOR environment variable.
func (c *Config) ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return c.Output.Color
}
