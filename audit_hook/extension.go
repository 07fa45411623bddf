// Package audithook turns tracker events into audit trail entries.
//
// It defines a local Recorder interface; callers adapt their audit backend
// with RecorderFunc at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/plugin"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnShotCreated     = (*Extension)(nil)
	_ plugin.OnShotUpdated     = (*Extension)(nil)
	_ plugin.OnShotDeleted     = (*Extension)(nil)
	_ plugin.OnShotDuplicated  = (*Extension)(nil)
	_ plugin.OnCapacityBlocked = (*Extension)(nil)
	_ plugin.OnLowSupply       = (*Extension)(nil)
	_ plugin.OnStoreError      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension records tracker events through a Recorder.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Record hooks
// ──────────────────────────────────────────────────

// OnShotCreated implements plugin.OnShotCreated.
func (e *Extension) OnShotCreated(ctx context.Context, shotID id.ShotID, f shot.Fields) error {
	return e.record(ctx, ActionShotCreated, SeverityInfo, OutcomeSuccess,
		ResourceShot, shotID.String(), CategoryRecord, nil,
		fieldPairs(f)...,
	)
}

// OnShotUpdated implements plugin.OnShotUpdated.
func (e *Extension) OnShotUpdated(ctx context.Context, shotID id.ShotID, f shot.Fields) error {
	return e.record(ctx, ActionShotUpdated, SeverityInfo, OutcomeSuccess,
		ResourceShot, shotID.String(), CategoryRecord, nil,
		fieldPairs(f)...,
	)
}

// OnShotDeleted implements plugin.OnShotDeleted.
func (e *Extension) OnShotDeleted(ctx context.Context, shotID id.ShotID) error {
	return e.record(ctx, ActionShotDeleted, SeverityInfo, OutcomeSuccess,
		ResourceShot, shotID.String(), CategoryRecord, nil,
	)
}

// OnShotDuplicated implements plugin.OnShotDuplicated.
func (e *Extension) OnShotDuplicated(ctx context.Context, sourceID, createdID id.ShotID) error {
	return e.record(ctx, ActionShotDuplicated, SeverityInfo, OutcomeSuccess,
		ResourceShot, createdID.String(), CategoryRecord, nil,
		"source_id", sourceID.String(),
	)
}

// ──────────────────────────────────────────────────
// Supply hooks
// ──────────────────────────────────────────────────

// OnCapacityBlocked implements plugin.OnCapacityBlocked.
func (e *Extension) OnCapacityBlocked(ctx context.Context, state supply.State) error {
	return e.record(ctx, ActionCapacityBlocked, SeverityWarning, OutcomeFailure,
		ResourceSupply, "", CategorySupply, nil,
		statePairs(state)...,
	)
}

// OnLowSupply implements plugin.OnLowSupply.
func (e *Extension) OnLowSupply(ctx context.Context, state supply.State) error {
	return e.record(ctx, ActionSupplyLow, SeverityWarning, OutcomeSuccess,
		ResourceSupply, "", CategorySupply, nil,
		statePairs(state)...,
	)
}

// ──────────────────────────────────────────────────
// Store hooks
// ──────────────────────────────────────────────────

// OnStoreError implements plugin.OnStoreError.
func (e *Extension) OnStoreError(ctx context.Context, op string, err error) error {
	return e.record(ctx, ActionStoreFailed, SeverityError, OutcomeFailure,
		ResourceStore, op, CategoryStore, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func fieldPairs(f shot.Fields) []any {
	return []any{
		"date", f.Date,
		"brand", f.Brand,
		"type", f.Type,
		"amount_ml", f.AmountMl,
		"amount_mg", f.AmountMg,
		"location", f.Location,
	}
}

func statePairs(s supply.State) []any {
	return []any{
		"remaining_ml", s.RemainingMl.FormatMl(),
		"shot_size_ml", s.ShotSizeMl.FormatMl(),
		"shots_taken", s.ShotsTaken,
		"shots_remaining", s.ShotsRemaining,
	}
}

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged and never reach the tracker.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
