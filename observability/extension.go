// Package observability provides a metrics extension for the vial tracker
// that records event counts and supply levels via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/plugin"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnShotCreated     = (*MetricsExtension)(nil)
	_ plugin.OnShotUpdated     = (*MetricsExtension)(nil)
	_ plugin.OnShotDeleted     = (*MetricsExtension)(nil)
	_ plugin.OnShotDuplicated  = (*MetricsExtension)(nil)
	_ plugin.OnSnapshotApplied = (*MetricsExtension)(nil)
	_ plugin.OnCapacityBlocked = (*MetricsExtension)(nil)
	_ plugin.OnLowSupply       = (*MetricsExtension)(nil)
	_ plugin.OnStoreError      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records tracker metrics.
// Register it as a tracker plugin to follow record traffic and vial levels.
type MetricsExtension struct {
	factory MetricFactory

	// Record metrics
	ShotCreated    Counter
	ShotUpdated    Counter
	ShotDeleted    Counter
	ShotDuplicated Counter

	// Supply metrics
	SnapshotsApplied Counter
	SnapshotRecords  Histogram
	RemainingMl      Histogram
	ShotsRemaining   Histogram
	CapacityBlocked  Counter
	LowSupply        Counter
	MalformedAmounts Counter

	// Error metrics
	StoreErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ShotCreated:    factory.Counter("vial.shot.created"),
		ShotUpdated:    factory.Counter("vial.shot.updated"),
		ShotDeleted:    factory.Counter("vial.shot.deleted"),
		ShotDuplicated: factory.Counter("vial.shot.duplicated"),

		SnapshotsApplied: factory.Counter("vial.snapshot.applied"),
		SnapshotRecords:  factory.Histogram("vial.snapshot.records"),
		RemainingMl:      factory.Histogram("vial.supply.remaining_ml"),
		ShotsRemaining:   factory.Histogram("vial.supply.shots_remaining"),
		CapacityBlocked:  factory.Counter("vial.supply.capacity_blocked"),
		LowSupply:        factory.Counter("vial.supply.low"),
		MalformedAmounts: factory.Counter("vial.supply.malformed_amounts"),

		StoreErrors: factory.Counter("vial.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Record hooks
// ──────────────────────────────────────────────────

// OnShotCreated implements plugin.OnShotCreated.
func (m *MetricsExtension) OnShotCreated(_ context.Context, _ id.ShotID, _ shot.Fields) error {
	m.ShotCreated.Inc()
	return nil
}

// OnShotUpdated implements plugin.OnShotUpdated.
func (m *MetricsExtension) OnShotUpdated(_ context.Context, _ id.ShotID, _ shot.Fields) error {
	m.ShotUpdated.Inc()
	return nil
}

// OnShotDeleted implements plugin.OnShotDeleted.
func (m *MetricsExtension) OnShotDeleted(_ context.Context, _ id.ShotID) error {
	m.ShotDeleted.Inc()
	return nil
}

// OnShotDuplicated implements plugin.OnShotDuplicated.
func (m *MetricsExtension) OnShotDuplicated(_ context.Context, _, _ id.ShotID) error {
	m.ShotDuplicated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Supply hooks
// ──────────────────────────────────────────────────

// OnSnapshotApplied implements plugin.OnSnapshotApplied.
func (m *MetricsExtension) OnSnapshotApplied(_ context.Context, records int, state supply.State) error {
	m.SnapshotsApplied.Inc()
	m.SnapshotRecords.Observe(float64(records))
	m.RemainingMl.Observe(state.RemainingMl.Float())
	m.ShotsRemaining.Observe(float64(state.ShotsRemaining))
	if n := len(state.Issues); n > 0 {
		m.MalformedAmounts.Add(float64(n))
	}
	return nil
}

// OnCapacityBlocked implements plugin.OnCapacityBlocked.
func (m *MetricsExtension) OnCapacityBlocked(_ context.Context, _ supply.State) error {
	m.CapacityBlocked.Inc()
	return nil
}

// OnLowSupply implements plugin.OnLowSupply.
func (m *MetricsExtension) OnLowSupply(_ context.Context, _ supply.State) error {
	m.LowSupply.Inc()
	return nil
}

// OnStoreError implements plugin.OnStoreError.
func (m *MetricsExtension) OnStoreError(_ context.Context, _ string, _ error) error {
	m.StoreErrors.Inc()
	return nil
}
