package extension

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/store/memory"
)

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig(Config{}, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolveConfigLayers(t *testing.T) {
	t.Setenv("VIAL_CAPACITY_ML", "3")
	t.Setenv("VIAL_PAGE_SIZE", "25")
	t.Setenv("VIAL_DISABLE_ROUTES", "true")

	file := Config{CapacityMl: "10", ShotSizeMl: "0.2", BasePath: "/ins"}
	programmatic := Config{ShotSizeMl: "0.5", DefaultBrand: "Humalog", DisableMigrate: true}

	cfg, err := resolveConfig(file, programmatic)
	require.NoError(t, err)

	assert.Equal(t, "3", cfg.CapacityMl, "env overrides file")
	assert.Equal(t, "0.2", cfg.ShotSizeMl, "file wins over programmatic")
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "/ins", cfg.BasePath)
	assert.Equal(t, "Humalog", cfg.DefaultBrand, "programmatic fills gaps")
	assert.True(t, cfg.DisableRoutes)
	assert.True(t, cfg.DisableMigrate)
	require.NotNil(t, cfg.LowSupplyShots)
	assert.Equal(t, int64(7), *cfg.LowSupplyShots, "defaults fill the rest")
}

func TestResolveConfigLowSupplyZero(t *testing.T) {
	cfg, err := resolveConfig(Config{LowSupplyShots: shots(0)}, Config{LowSupplyShots: shots(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.lowSupplyShots(), "zero is a setting, not a gap")

	cfg, err = resolveConfig(Config{}, Config{LowSupplyShots: shots(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), cfg.lowSupplyShots())

	t.Setenv("VIAL_LOW_SUPPLY_SHOTS", "0")
	cfg, err = resolveConfig(Config{}, Config{LowSupplyShots: shots(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.lowSupplyShots())
}

func TestResolveConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("VIAL_PAGE_SIZE", "many")

	_, err := resolveConfig(Config{}, Config{})
	assert.Error(t, err)
}

func TestTrackerOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapacityMl = "1"
	cfg.DefaultBrand = "Humalog"
	cfg.DefaultAmountMl = "0.12"

	opts, err := trackerOptions(cfg, nil)
	require.NoError(t, err)

	tr := vial.New(memory.New(), opts...)
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()

	assert.Equal(t, "1.00 ml", tr.State().RemainingMl.String())
	assert.Equal(t, int64(9), tr.State().ShotsRemaining)
	assert.Equal(t, "Humalog", tr.Session().Draft().Brand)
	assert.Equal(t, "0.12", tr.Session().Draft().AmountMl)
}

func TestTrackerOptionsRejectBadVolumes(t *testing.T) {
	for _, tc := range []Config{
		{CapacityMl: "abc", ShotSizeMl: "0.11"},
		{CapacityMl: "10", ShotSizeMl: "0"},
		{CapacityMl: "-1", ShotSizeMl: "0.11"},
		{CapacityMl: "10", ShotSizeMl: "0.11", DefaultAmountMl: "lots"},
	} {
		_, err := trackerOptions(tc, nil)
		assert.Error(t, err, "%+v", tc)
	}
}

func TestNewAppliesOptions(t *testing.T) {
	s := memory.New()
	e := New(
		WithStore(s),
		WithBasePath("/api/vial"),
		WithCapacity("5"),
		WithDisableRoutes(),
		WithLowSupplyShots(0),
		WithDefaultAmount("0.11"),
	)

	assert.Same(t, s, e.store)
	assert.Equal(t, "/api/vial", e.config.BasePath)
	assert.Equal(t, "5", e.config.CapacityMl)
	assert.True(t, e.config.DisableRoutes)
	assert.Equal(t, int64(0), e.config.lowSupplyShots())
	assert.Equal(t, "0.11", e.config.DefaultAmountMl)
	assert.Nil(t, e.Tracker())
	assert.Nil(t, e.Handler())
	assert.Error(t, e.Start(context.Background()))
}
