// Package extension provides the Forge extension adapter for the vial tracker.
//
// It implements the forge.Extension interface to integrate the tracker into
// a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions,
// via YAML configuration files under "extensions.vial" or "vial" keys, or
// via VIAL_* environment variables. File values come first, the environment
// overrides them, programmatic options fill what is still unset and the
// defaults fill the rest.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/api"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/store"
	"github.com/xraph/vial/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "vial"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Insulin vial supply tracker"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the vial tracker as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	tracker     *vial.Tracker
	handler     http.Handler
	store       store.Store
	trackerOpts []vial.Option
}

// New creates a new vial Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tracker returns the underlying tracker.
// This is nil until Register is called.
func (e *Extension) Tracker() *vial.Tracker { return e.tracker }

// Handler returns the HTTP handler serving the vial routes under
// Config.BasePath. It is nil until Register is called, and stays nil when
// routes are disabled.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the tracker, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildTrackerOpts()
	if err != nil {
		return err
	}

	e.tracker = vial.New(e.store, opts...)
	if !e.config.DisableRoutes {
		e.handler = api.New(e.tracker).Echo(e.config.BasePath)
	}

	return vessel.Provide(fapp.Container(), func() (*vial.Tracker, error) {
		return e.tracker, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.tracker == nil {
		return errors.New("vial: extension not initialized")
	}

	if err := e.tracker.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.tracker != nil {
		if err := e.tracker.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.tracker == nil {
		return errors.New("vial: tracker not initialized")
	}
	return e.tracker.Health(ctx)
}

// buildTrackerOpts constructs vial.Option values from the resolved config.
func (e *Extension) buildTrackerOpts() ([]vial.Option, error) {
	return trackerOptions(e.config, e.trackerOpts)
}

func trackerOptions(cfg Config, extra []vial.Option) ([]vial.Option, error) {
	capacity, err := vial.ParseVolume(cfg.CapacityMl)
	if err != nil || !capacity.IsPositive() {
		return nil, fmt.Errorf("vial: invalid capacity_ml %q", cfg.CapacityMl)
	}
	shotSize, err := vial.ParseVolume(cfg.ShotSizeMl)
	if err != nil || !shotSize.IsPositive() {
		return nil, fmt.Errorf("vial: invalid shot_size_ml %q", cfg.ShotSizeMl)
	}

	if cfg.DefaultAmountMl != "" {
		if _, err := vial.ParseVolume(cfg.DefaultAmountMl); err != nil {
			return nil, fmt.Errorf("vial: invalid default_amount_ml %q", cfg.DefaultAmountMl)
		}
	}

	opts := make([]vial.Option, 0, len(extra)+7)
	opts = append(opts,
		vial.WithCapacity(capacity),
		vial.WithShotSize(shotSize),
		vial.WithPageSize(cfg.PageSize),
		vial.WithLowSupplyThreshold(cfg.lowSupplyShots()),
		vial.WithStickyDefaults(cfg.StickyDefaults),
		vial.WithAutoMigrate(!cfg.DisableMigrate),
		vial.WithDraftDefaults(shot.Fields{
			Brand:    cfg.DefaultBrand,
			Type:     cfg.DefaultType,
			Location: cfg.DefaultLocation,
			AmountMl: cfg.DefaultAmountMl,
		}),
	)

	// Pass-through options win over config.
	opts = append(opts, extra...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files, the environment and
// programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded && programmaticConfig.RequireConfig {
		return errors.New("vial: configuration is required but not found in config files; " +
			"ensure 'extensions.vial' or 'vial' key exists in your config")
	}

	cfg, err := resolveConfig(fileConfig, programmaticConfig)
	if err != nil {
		return err
	}
	e.config = cfg

	e.Logger().Debug("vial: configuration loaded",
		forge.F("from_file", configLoaded),
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("capacity_ml", e.config.CapacityMl),
		forge.F("shot_size_ml", e.config.ShotSizeMl),
		forge.F("page_size", e.config.PageSize),
		forge.F("low_supply_shots", e.config.lowSupplyShots()),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.vial" first (namespaced pattern).
	if cm.IsSet("extensions.vial") {
		if err := cm.Bind("extensions.vial", &cfg); err == nil {
			e.Logger().Debug("vial: loaded config from file",
				forge.F("key", "extensions.vial"),
			)
			return cfg, true
		}
		e.Logger().Warn("vial: failed to bind extensions.vial config",
			forge.F("error", "bind failed"),
		)
	}

	// Try short "vial" key.
	if cm.IsSet("vial") {
		if err := cm.Bind("vial", &cfg); err == nil {
			e.Logger().Debug("vial: loaded config from file",
				forge.F("key", "vial"),
			)
			return cfg, true
		}
		e.Logger().Warn("vial: failed to bind vial config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// resolveConfig layers the environment over the file config, then fills the
// gaps from programmatic options and defaults.
func resolveConfig(fileConfig, programmaticConfig Config) (Config, error) {
	cfg, err := applyEnv(fileConfig)
	if err != nil {
		return Config{}, err
	}
	return mergeConfigurations(cfg, programmaticConfig), nil
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.CapacityMl == "" {
		cfg.CapacityMl = defaults.CapacityMl
	}
	if cfg.ShotSizeMl == "" {
		cfg.ShotSizeMl = defaults.ShotSizeMl
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.LowSupplyShots == nil {
		cfg.LowSupplyShots = defaults.LowSupplyShots
	}
	return cfg
}

// mergeConfigurations merges loaded config with programmatic options.
// Loaded values take precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(loaded, programmatic Config) Config {
	if programmatic.DisableRoutes {
		loaded.DisableRoutes = true
	}
	if programmatic.DisableMigrate {
		loaded.DisableMigrate = true
	}
	if programmatic.StickyDefaults {
		loaded.StickyDefaults = true
	}

	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&loaded.BasePath, programmatic.BasePath)
	fill(&loaded.CapacityMl, programmatic.CapacityMl)
	fill(&loaded.ShotSizeMl, programmatic.ShotSizeMl)
	fill(&loaded.DefaultBrand, programmatic.DefaultBrand)
	fill(&loaded.DefaultType, programmatic.DefaultType)
	fill(&loaded.DefaultLocation, programmatic.DefaultLocation)
	fill(&loaded.DefaultAmountMl, programmatic.DefaultAmountMl)

	if loaded.PageSize == 0 && programmatic.PageSize != 0 {
		loaded.PageSize = programmatic.PageSize
	}
	if loaded.LowSupplyShots == nil {
		loaded.LowSupplyShots = programmatic.LowSupplyShots
	}

	loaded.RequireConfig = programmatic.RequireConfig

	return mergeWithDefaults(loaded)
}
