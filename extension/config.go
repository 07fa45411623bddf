package extension

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	vial "github.com/xraph/vial"
)

// Config holds the vial extension configuration.
// Fields can be set programmatically via Option functions, loaded from
// YAML configuration files (under "extensions.vial" or "vial" keys) or read
// from VIAL_* environment variables.
type Config struct {
	// DisableRoutes prevents building the HTTP handler.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes" env:"VIAL_DISABLE_ROUTES"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate" env:"VIAL_DISABLE_MIGRATE"`

	// BasePath is the URL prefix for vial routes (default: "/vial").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path" env:"VIAL_BASE_PATH"`

	// CapacityMl is the vial volume in millilitres (default: "10").
	CapacityMl string `json:"capacity_ml" mapstructure:"capacity_ml" yaml:"capacity_ml" env:"VIAL_CAPACITY_ML"`

	// ShotSizeMl is the volume of one shot in millilitres (default: "0.11").
	ShotSizeMl string `json:"shot_size_ml" mapstructure:"shot_size_ml" yaml:"shot_size_ml" env:"VIAL_SHOT_SIZE_ML"`

	// PageSize is the number of records per ledger page (default: 10).
	PageSize int `json:"page_size" mapstructure:"page_size" yaml:"page_size" env:"VIAL_PAGE_SIZE"`

	// LowSupplyShots is the shots-remaining level that raises the low-supply
	// alert (default: 7). Zero alerts on an empty vial; negative disables.
	LowSupplyShots *int64 `json:"low_supply_shots" mapstructure:"low_supply_shots" yaml:"low_supply_shots" env:"VIAL_LOW_SUPPLY_SHOTS"`

	// StickyDefaults makes each saved record's fields the next draft's defaults.
	StickyDefaults bool `json:"sticky_defaults" mapstructure:"sticky_defaults" yaml:"sticky_defaults" env:"VIAL_STICKY_DEFAULTS"`

	// Draft defaults for new records.
	DefaultBrand    string `json:"default_brand" mapstructure:"default_brand" yaml:"default_brand" env:"VIAL_DEFAULT_BRAND"`
	DefaultType     string `json:"default_type" mapstructure:"default_type" yaml:"default_type" env:"VIAL_DEFAULT_TYPE"`
	DefaultLocation string `json:"default_location" mapstructure:"default_location" yaml:"default_location" env:"VIAL_DEFAULT_LOCATION"`
	DefaultAmountMl string `json:"default_amount_ml" mapstructure:"default_amount_ml" yaml:"default_amount_ml" env:"VIAL_DEFAULT_AMOUNT_ML"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:       "/vial",
		CapacityMl:     "10",
		ShotSizeMl:     "0.11",
		PageSize:       10,
		LowSupplyShots: shots(vial.DefaultLowSupplyShots),
	}
}

func shots(n int64) *int64 { return &n }

// lowSupplyShots returns the configured alert level, or the default when unset.
func (c Config) lowSupplyShots() int64 {
	if c.LowSupplyShots == nil {
		return vial.DefaultLowSupplyShots
	}
	return *c.LowSupplyShots
}

// applyEnv overlays VIAL_* environment variables on cfg. Unset variables
// leave the field as it is.
func applyEnv(cfg Config) (Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("vial: parse env: %w", err)
	}
	return cfg, nil
}
