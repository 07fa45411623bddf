package extension

import (
	vial "github.com/xraph/vial"
	"github.com/xraph/vial/plugin"
	"github.com/xraph/vial/store"
)

// Option configures the vial Forge extension.
type Option func(*Extension)

// WithStore sets the store for the tracker. Without one the extension runs
// on an in-memory store.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTrackerOption passes a vial.Option through to the underlying tracker.
func WithTrackerOption(opt vial.Option) Option {
	return func(e *Extension) {
		e.trackerOpts = append(e.trackerOpts, opt)
	}
}

// WithPlugin registers a tracker plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.trackerOpts = append(e.trackerOpts, vial.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents building the HTTP handler.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for vial routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCapacity sets the vial volume, e.g. "10".
func WithCapacity(ml string) Option {
	return func(e *Extension) { e.config.CapacityMl = ml }
}

// WithShotSize sets the volume of one shot, e.g. "0.11".
func WithShotSize(ml string) Option {
	return func(e *Extension) { e.config.ShotSizeMl = ml }
}

// WithPageSize sets the number of records per page.
func WithPageSize(n int) Option {
	return func(e *Extension) { e.config.PageSize = n }
}

// WithLowSupplyShots sets the shots-remaining level that raises the
// low-supply alert. Zero alerts on an empty vial; negative disables.
func WithLowSupplyShots(n int64) Option {
	return func(e *Extension) { e.config.LowSupplyShots = &n }
}

// WithDefaultAmount sets the draft's default amount, e.g. "0.11".
func WithDefaultAmount(ml string) Option {
	return func(e *Extension) { e.config.DefaultAmountMl = ml }
}
