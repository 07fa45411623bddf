// Package plugin provides lifecycle hooks for the vial tracker.
// A plugin implements Plugin plus any subset of the hook interfaces below.
package plugin

import (
	"context"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the tracker starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, tracker any) error
}

// OnShutdown is called when the tracker stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Record hooks
// ──────────────────────────────────────────────────

// OnShotCreated is called after the store accepted a new record.
type OnShotCreated interface {
	Plugin
	OnShotCreated(ctx context.Context, shotID id.ShotID, f shot.Fields) error
}

// OnShotUpdated is called after the store accepted an edit.
type OnShotUpdated interface {
	Plugin
	OnShotUpdated(ctx context.Context, shotID id.ShotID, f shot.Fields) error
}

// OnShotDeleted is called after the store removed a record.
type OnShotDeleted interface {
	Plugin
	OnShotDeleted(ctx context.Context, shotID id.ShotID) error
}

// OnShotDuplicated is called after a record was cloned into a new one.
type OnShotDuplicated interface {
	Plugin
	OnShotDuplicated(ctx context.Context, sourceID, createdID id.ShotID) error
}

// ──────────────────────────────────────────────────
// Supply hooks
// ──────────────────────────────────────────────────

// OnSnapshotApplied is called after the ledger replaced its snapshot.
type OnSnapshotApplied interface {
	Plugin
	OnSnapshotApplied(ctx context.Context, records int, state supply.State) error
}

// OnCapacityBlocked is called when the capacity guard rejected a new record.
type OnCapacityBlocked interface {
	Plugin
	OnCapacityBlocked(ctx context.Context, state supply.State) error
}

// OnLowSupply is called when shots remaining fall to the low-supply threshold.
type OnLowSupply interface {
	Plugin
	OnLowSupply(ctx context.Context, state supply.State) error
}

// ──────────────────────────────────────────────────
// Store hooks
// ──────────────────────────────────────────────────

// OnStoreError is called when a store call or the snapshot stream failed.
// op is one of "subscribe", "stream", "create", "update", "delete".
type OnStoreError interface {
	Plugin
	OnStoreError(ctx context.Context, op string, err error) error
}
