package vial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/page"
	"github.com/xraph/vial/plugin"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/store"
	"github.com/xraph/vial/supply"
	"github.com/xraph/vial/types"
)

// DefaultLowSupplyShots is the shots-remaining level at which OnLowSupply fires.
const DefaultLowSupplyShots = 7

// Tracker is the vial supply engine. It keeps a Ledger in sync with the
// store, recomputes the page window on every snapshot and routes session
// outcomes to plugins.
type Tracker struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	ledger  *Ledger
	session *Session
	pager   *page.Pager

	// Configuration
	capacity       types.Volume
	shotSize       types.Volume
	pageSize       int
	clock          func() time.Time
	defaults       shot.Fields
	sticky         bool
	lowSupplyShots int64
	migrate        bool

	initOnce  sync.Once
	stopOnce  sync.Once
	stopped   atomic.Bool
	lastShots atomic.Int64
}

// New creates a new Tracker over s.
func New(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		capacity:       supply.DefaultCapacity,
		shotSize:       supply.DefaultShotSize,
		pageSize:       page.DefaultSize,
		clock:          time.Now,
		lowSupplyShots: DefaultLowSupplyShots,
		migrate:        true,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.lastShots.Store(-1)
	t.ledger = NewLedger(s, t.capacity, t.shotSize,
		WithLedgerLogger(t.logger),
		WithLedgerClock(t.clock),
	)
	t.session = NewSession(s, t.ledger, SessionConfig{
		Clock:    t.clock,
		Defaults: t.defaults,
		Sticky:   t.sticky,
	})
	t.pager = page.NewPager(t.pageSize)

	t.ledger.OnChange(t.onSnapshot)
	t.ledger.OnError(t.onStreamError)

	return t
}

// Option configures a Tracker instance.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Tracker) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCapacity sets the vial capacity.
func WithCapacity(capacity types.Volume) Option {
	return func(t *Tracker) {
		if capacity.IsPositive() {
			t.capacity = capacity
		}
	}
}

// WithShotSize sets the volume of one shot.
func WithShotSize(size types.Volume) Option {
	return func(t *Tracker) {
		if size.IsPositive() {
			t.shotSize = size
		}
	}
}

// WithPageSize sets the number of records per page.
func WithPageSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithClock sets the clock used for "today".
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithDraftDefaults seeds new drafts with f. The date is always today.
func WithDraftDefaults(f shot.Fields) Option {
	return func(t *Tracker) { t.defaults = f }
}

// WithStickyDefaults makes each saved record's fields the next draft's defaults.
func WithStickyDefaults(enabled bool) Option {
	return func(t *Tracker) { t.sticky = enabled }
}

// WithLowSupplyThreshold sets the shots-remaining level that triggers OnLowSupply.
// A negative value disables the alert.
func WithLowSupplyThreshold(shots int64) Option {
	return func(t *Tracker) { t.lowSupplyShots = shots }
}

// WithAutoMigrate controls whether Start migrates the store. On by default.
func WithAutoMigrate(enabled bool) Option {
	return func(t *Tracker) { t.migrate = enabled }
}

// Start migrates the store and subscribes the ledger. A failed subscription
// leaves the tracker usable; Start can be called again to retry it.
func (t *Tracker) Start(ctx context.Context) error {
	if t.stopped.Load() {
		return ErrTrackerStopped
	}

	if t.migrate {
		if err := t.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	t.initOnce.Do(func() {
		t.plugins.EmitInit(ctx, t)
	})

	if err := t.ledger.Start(ctx); err != nil {
		return err
	}

	t.logger.Info("vial tracker started",
		"capacity_ml", t.capacity.FormatMl(),
		"shot_size_ml", t.shotSize.FormatMl(),
		"page_size", t.pageSize,
		"plugins", t.plugins.Count(),
	)

	return nil
}

// Stop releases the subscription and closes the store.
func (t *Tracker) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		t.ledger.Stop()

		t.plugins.EmitShutdown(context.Background())
		err = t.store.Close()

		t.logger.Info("vial tracker stopped")
	})
	return err
}

// Health pings the store and reports a failed subscription.
func (t *Tracker) Health(ctx context.Context) error {
	if t.stopped.Load() {
		return ErrTrackerStopped
	}
	if err := t.store.Ping(ctx); err != nil {
		return storeError("ping", err)
	}
	return t.ledger.Err()
}

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// Ledger returns the usage ledger.
func (t *Tracker) Ledger() *Ledger { return t.ledger }

// Session returns the edit session.
func (t *Tracker) Session() *Session { return t.session }

// Plugins returns the plugin registry.
func (t *Tracker) Plugins() *plugin.Registry { return t.plugins }

// Store returns the underlying store.
func (t *Tracker) Store() store.Store { return t.store }

// State returns the current vial state.
func (t *Tracker) State() supply.State { return t.ledger.State() }

// Records returns the ordered records of the current snapshot.
func (t *Tracker) Records() []*shot.Shot { return t.ledger.Records() }

// Record returns a record of the current snapshot by id.
func (t *Tracker) Record(shotID id.ShotID) (*shot.Shot, error) {
	r := t.ledger.Snapshot().Find(shotID)
	if r == nil {
		return nil, fmt.Errorf("%w: shot %s", ErrNotFound, shotID)
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Pagination
// ──────────────────────────────────────────────────

// View returns the current page window.
func (t *Tracker) View() page.View { return t.pager.View() }

// GoToPage moves the page window to n, clamped.
func (t *Tracker) GoToPage(n int) page.View { return t.pager.GoTo(n) }

// NextPage advances the page window.
func (t *Tracker) NextPage() page.View { return t.pager.Next() }

// PrevPage moves the page window back.
func (t *Tracker) PrevPage() page.View { return t.pager.Prev() }

// Page returns page n of the current snapshot without moving the shared window.
func (t *Tracker) Page(n int) page.View {
	return page.Window(t.ledger.Records(), t.pageSize, n)
}

// ──────────────────────────────────────────────────
// Edit session
// ──────────────────────────────────────────────────

// StartEdit targets the record shotID of the current snapshot.
func (t *Tracker) StartEdit(shotID id.ShotID) error {
	r, err := t.Record(shotID)
	if err != nil {
		return err
	}
	return t.session.StartEdit(r)
}

// Save commits the session draft.
func (t *Tracker) Save(ctx context.Context) Outcome {
	if t.stopped.Load() {
		return Outcome{Op: OpCreate, Message: MsgSaveFailed, Err: ErrTrackerStopped}
	}
	return t.report(ctx, t.session.Save(ctx))
}

// Duplicate clones the record shotID dated today.
func (t *Tracker) Duplicate(ctx context.Context, shotID id.ShotID) Outcome {
	if t.stopped.Load() {
		return Outcome{Op: OpDuplicate, SourceID: shotID, Message: MsgSaveFailed, Err: ErrTrackerStopped}
	}
	r, err := t.Record(shotID)
	if err != nil {
		return Outcome{Op: OpDuplicate, SourceID: shotID, Message: MsgInvalidRecord, Err: err}
	}
	return t.report(ctx, t.session.Duplicate(ctx, r))
}

// Delete removes the record shotID.
func (t *Tracker) Delete(ctx context.Context, shotID id.ShotID) Outcome {
	if t.stopped.Load() {
		return Outcome{Op: OpDelete, ID: shotID, Message: MsgDeleteFailed, Err: ErrTrackerStopped}
	}
	return t.report(ctx, t.session.Delete(ctx, shotID))
}

// ──────────────────────────────────────────────────
// Direct operations
// ──────────────────────────────────────────────────

// Register creates a record from f without going through the session
// draft. The capacity guard applies.
func (t *Tracker) Register(ctx context.Context, f shot.Fields) Outcome {
	if t.stopped.Load() {
		return Outcome{Op: OpCreate, Fields: f, Message: MsgSaveFailed, Err: ErrTrackerStopped}
	}
	f = f.Normalize()
	if f.Date == "" {
		f.Date = shot.Today(t.clock())
	}
	return t.report(ctx, createRecord(ctx, t.store, t.ledger.State(), f))
}

// Update replaces the fields of shotID without going through the session.
func (t *Tracker) Update(ctx context.Context, shotID id.ShotID, f shot.Fields) Outcome {
	if t.stopped.Load() {
		return Outcome{Op: OpUpdate, ID: shotID, Fields: f, Message: MsgSaveFailed, Err: ErrTrackerStopped}
	}
	if shotID.IsNil() {
		return Outcome{Op: OpUpdate, Fields: f, Message: MsgInvalidRecord, Err: ValidationError{Field: "id", Message: "required"}}
	}
	return t.report(ctx, updateRecord(ctx, t.store, shotID, f.Normalize()))
}

// report logs an outcome and emits the matching plugin event.
func (t *Tracker) report(ctx context.Context, out Outcome) Outcome {
	switch {
	case out.OK():
		t.logger.Info("shot "+string(out.Op)+" accepted", "shot_id", out.ID.String())
		switch out.Op {
		case OpCreate:
			t.plugins.EmitShotCreated(ctx, out.ID, out.Fields)
		case OpUpdate:
			t.plugins.EmitShotUpdated(ctx, out.ID, out.Fields)
		case OpDelete:
			t.plugins.EmitShotDeleted(ctx, out.ID)
		case OpDuplicate:
			t.plugins.EmitShotDuplicated(ctx, out.SourceID, out.ID)
		}

	case IsPolicyRejection(out.Err):
		state := t.ledger.State()
		t.logger.Info("shot blocked by capacity guard",
			"remaining_ml", state.RemainingMl.FormatMl(),
			"shot_size_ml", state.ShotSizeMl.FormatMl(),
		)
		t.plugins.EmitCapacityBlocked(ctx, state)

	case IsStoreError(out.Err):
		t.logger.Warn("shot "+string(out.Op)+" failed",
			"shot_id", out.ID.String(),
			"error", out.Err,
		)
		t.plugins.EmitStoreError(ctx, string(out.Op), out.Err)

	default:
		t.logger.Debug("shot "+string(out.Op)+" rejected", "error", out.Err)
	}
	return out
}

// onSnapshot runs for every applied ledger snapshot.
func (t *Tracker) onSnapshot(snap *Snapshot) {
	ctx := context.Background()

	t.pager.Refresh(snap.Records)

	if t.session.Reconcile(snap) {
		t.logger.Info("edited shot disappeared from ledger, session reset")
	}

	t.plugins.EmitSnapshotApplied(ctx, len(snap.Records), snap.State)

	shots := snap.State.ShotsRemaining
	prev := t.lastShots.Swap(shots)
	if t.lowSupplyShots >= 0 && shots <= t.lowSupplyShots && (prev < 0 || prev > t.lowSupplyShots) {
		t.logger.Warn("vial running low",
			"shots_remaining", shots,
			"remaining_ml", snap.State.RemainingMl.FormatMl(),
		)
		t.plugins.EmitLowSupply(ctx, snap.State)
	}
}

// onStreamError runs when the ledger subscription fails.
func (t *Tracker) onStreamError(err error) {
	op := "stream"
	var se *StoreError
	if errors.As(err, &se) {
		op = se.Op
	}
	t.plugins.EmitStoreError(context.Background(), op, err)
}
