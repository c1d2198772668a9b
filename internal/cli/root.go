// Package cli implements the command-line interface for upm.
package cli

import (
	"upm/internal/aggregate"
	"upm/internal/cache"
	"upm/internal/config"
	"upm/internal/executor"
	"upm/internal/ratelimit"
	"upm/internal/store"
	"upm/internal/ui"
	"upm/pkg/source"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	sourceFlag string
	dryRun     bool
	yes        bool
	verbose    bool
	noColor    bool

	// Global state
	cfg      *config.Config
	db       *store.Store
	apiCache *cache.Cache
	limits   *ratelimit.Registry
	exec     *executor.Executor
	adapters []source.Adapter
	agg      *aggregate.Aggregator
)

// Build metadata - set at build time via ldflags
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "upm",
	Short: "Unified frontend for APT, Snap, and Flatpak",
	Long: `Upm searches, installs, and removes packages across APT, Snap,
and Flatpak through one interface. Results from every enabled source are
merged into a single list, and installs are tracked in a local database
so removals and history survive across sources.

Examples:
  upm search firefox              # Search all enabled sources
  upm install vim                 # Install from the first source that has it
  upm install spotify -s flatpak  # Install explicitly from Flatpak
  upm list --db                   # Show packages tracked in the local database
  upm prefs set snap off          # Disable the Snap source`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeApp()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownApp()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&sourceFlag, "source", "s", "", "package source (apt, snap, flatpak)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "assume yes to all prompts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(browseCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initializeApp sets up the application state.
func initializeApp() error {
	// Load configuration
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	// Apply global flag overrides
	if yes {
		cfg.General.AutoConfirm = true
	}
	if dryRun {
		cfg.General.DryRun = true
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.Color = false
	}

	// Initialize UI
	ui.Init(cfg.ShouldUseColor(), cfg.Output.Unicode)

	if err := config.EnsureDataDir(); err != nil {
		return err
	}

	db, err = store.Open(config.DatabasePath())
	if err != nil {
		return err
	}

	// The API cache is best-effort: a broken cache file just means every
	// Flathub search hits the network.
	apiCache, err = cache.Open(config.CachePath())
	if err != nil {
		if cfg.Output.Verbose {
			ui.WarningMsg("API cache unavailable: %v", err)
		}
		apiCache = nil
	}

	limits = ratelimit.NewRegistry(cfg.LimitPolicies())
	exec = executor.New(cfg.General.DryRun, cfg.Output.Verbose)

	registerAdapters()

	agg = aggregate.New(adapters, limits, db)
	return nil
}

// registerAdapters builds the source adapters in fixed priority order.
func registerAdapters() {
	flathubPolicy := limits.Policy(ratelimit.KeyFlathub)
	flathubLimiter := ratelimit.NewAdaptive(flathubPolicy.MaxRequests, flathubPolicy.Window)
	flathub := source.NewFlathubClient(cfg.Flathub.APIBaseURL, flathubLimiter, apiCache)
	flathub.SetCacheTTL(cfg.CacheTTL())

	adapters = []source.Adapter{
		source.NewAPT(exec),
		source.NewSnap(exec),
		source.NewFlatpak(exec, flathub),
	}
}

// shutdownApp releases the database handles.
func shutdownApp() {
	if apiCache != nil {
		_, _ = apiCache.Purge() //nolint:errcheck
		_ = apiCache.Close()    //nolint:errcheck
	}
	if db != nil {
		_ = db.Close() //nolint:errcheck
	}
}

// adapterFor returns the adapter registered under name.
func adapterFor(name string) (source.Adapter, error) {
	for _, ad := range adapters {
		if ad.Name() == name {
			return ad, nil
		}
	}
	return nil, ErrSourceNotFound
}

// enabledAdapter returns the adapter for name after checking it is both
// enabled in preferences and available on this system.
func enabledAdapter(name string) (source.Adapter, error) {
	ad, err := adapterFor(name)
	if err != nil {
		return nil, err
	}
	prefs, err := db.Preferences()
	if err != nil {
		return nil, err
	}
	if !sourceEnabled(prefs, ad.Kind()) {
		return nil, ErrSourceDisabled
	}
	if !ad.IsAvailable() {
		return nil, ErrSourceUnavailable
	}
	return ad, nil
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

// resolvePackages resolves aliases in package names.
func resolvePackages(packages []string) []string {
	return cfg.ResolveAliases(packages)
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print upm version",
	Run: func(cmd *cobra.Command, args []string) {
		ui.InfoMsg("upm version %s", Version)
		if Commit != "unknown" {
			ui.MutedMsg("  Commit: %s", Commit)
		}
		if BuildTime != "unknown" {
			ui.MutedMsg("  Built:  %s", BuildTime)
		}
	},
}
