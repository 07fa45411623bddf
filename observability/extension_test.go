package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
	"github.com/xraph/vial/types"
)

type counter struct{ n float64 }

func (c *counter) Inc()          { c.n++ }
func (c *counter) Add(v float64) { c.n += v }

type histogram struct{ values []float64 }

func (h *histogram) Observe(v float64) { h.values = append(h.values, v) }

type factory struct {
	counters   map[string]*counter
	histograms map[string]*histogram
}

func newFactory() *factory {
	return &factory{counters: map[string]*counter{}, histograms: map[string]*histogram{}}
}

func (f *factory) Counter(name string) Counter {
	c := &counter{}
	f.counters[name] = c
	return c
}

func (f *factory) Histogram(name string) Histogram {
	h := &histogram{}
	f.histograms[name] = h
	return h
}

func TestCountsRecordEvents(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	m := NewMetricsExtension(f)

	shotID := id.NewShotID()
	require.NoError(t, m.OnShotCreated(ctx, shotID, shot.Fields{}))
	require.NoError(t, m.OnShotCreated(ctx, shotID, shot.Fields{}))
	require.NoError(t, m.OnShotUpdated(ctx, shotID, shot.Fields{}))
	require.NoError(t, m.OnShotDeleted(ctx, shotID))
	require.NoError(t, m.OnShotDuplicated(ctx, shotID, id.NewShotID()))
	require.NoError(t, m.OnStoreError(ctx, "create", errors.New("db down")))

	assert.Equal(t, 2.0, f.counters["vial.shot.created"].n)
	assert.Equal(t, 1.0, f.counters["vial.shot.updated"].n)
	assert.Equal(t, 1.0, f.counters["vial.shot.deleted"].n)
	assert.Equal(t, 1.0, f.counters["vial.shot.duplicated"].n)
	assert.Equal(t, 1.0, f.counters["vial.store.errors"].n)
}

func TestObservesSupplyLevels(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	m := NewMetricsExtension(f)

	records := []*shot.Shot{
		{ID: id.NewShotID(), Fields: shot.Fields{AmountMl: "0.5"}},
		{ID: id.NewShotID(), Fields: shot.Fields{AmountMl: "abc"}},
	}
	state := supply.Compute(records, types.Ml("10"), types.Ml("0.5"))
	require.NoError(t, m.OnSnapshotApplied(ctx, len(records), state))
	require.NoError(t, m.OnCapacityBlocked(ctx, state))
	require.NoError(t, m.OnLowSupply(ctx, state))

	assert.Equal(t, 1.0, f.counters["vial.snapshot.applied"].n)
	assert.Equal(t, []float64{2}, f.histograms["vial.snapshot.records"].values)
	assert.Equal(t, []float64{9.5}, f.histograms["vial.supply.remaining_ml"].values)
	assert.Equal(t, []float64{19}, f.histograms["vial.supply.shots_remaining"].values)
	assert.Equal(t, 1.0, f.counters["vial.supply.malformed_amounts"].n)
	assert.Equal(t, 1.0, f.counters["vial.supply.capacity_blocked"].n)
	assert.Equal(t, 1.0, f.counters["vial.supply.low"].n)
}
