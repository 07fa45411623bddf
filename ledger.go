package vial

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
	"github.com/xraph/vial/types"
)

// Snapshot is one immutable view of the ledger. Callers must not modify
// Records or the records they point to.
type Snapshot struct {
	Records    []*shot.Shot `json:"records"`
	State      supply.State `json:"state"`
	Version    uint64       `json:"version"`
	ReceivedAt time.Time    `json:"received_at"`
}

// Find returns the record with the given id, or nil.
func (s *Snapshot) Find(shotID id.ShotID) *shot.Shot {
	return shot.Find(s.Records, shotID)
}

// Ledger mirrors the store's record set. Every delivered snapshot replaces
// the previous one wholesale.
type Ledger struct {
	store    shot.Store
	capacity types.Volume
	shotSize types.Volume
	logger   *slog.Logger
	clock    func() time.Time

	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	mu           sync.Mutex
	started      bool
	stopped      bool
	unsubscribe  shot.Unsubscribe
	err          error
	listeners    []func(*Snapshot)
	errListeners []func(error)
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerLogger sets the ledger logger.
func WithLedgerLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) { l.logger = logger }
}

// WithLedgerClock sets the clock used to stamp snapshots.
func WithLedgerClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) { l.clock = clock }
}

// NewLedger creates a ledger over store. It holds an empty snapshot until
// Start subscribes.
func NewLedger(store shot.Store, capacity, shotSize types.Volume, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:    store,
		capacity: capacity,
		shotSize: shotSize,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.current.Store(&Snapshot{State: supply.Empty(capacity, shotSize)})
	return l
}

// OnChange registers fn to run after every applied snapshot. Listeners run
// on the delivering goroutine, in registration order.
func (l *Ledger) OnChange(fn func(*Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// OnError registers fn to run when subscribing or the stream fails.
func (l *Ledger) OnError(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errListeners = append(l.errListeners, fn)
}

// Start subscribes to the store. Calling it again is a no-op. A failed
// subscription is recorded in Err and returned; Start may be retried.
func (l *Ledger) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrTrackerStopped
	}
	if l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = true
	l.mu.Unlock()

	unsubscribe, err := l.store.Subscribe(ctx, l.apply)
	if err != nil {
		l.mu.Lock()
		l.started = false
		l.mu.Unlock()

		err = storeError("subscribe", err)
		l.fail(err)
		return err
	}

	l.mu.Lock()
	if l.stopped {
		// Stop ran while Subscribe was in flight.
		l.mu.Unlock()
		unsubscribe()
		return ErrTrackerStopped
	}
	l.unsubscribe = unsubscribe
	l.mu.Unlock()

	return nil
}

// Stop releases the subscription. Snapshots delivered afterwards are
// ignored. It is safe to call more than once.
func (l *Ledger) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns the current snapshot.
func (l *Ledger) Snapshot() *Snapshot { return l.current.Load() }

// Records returns the ordered records of the current snapshot.
func (l *Ledger) Records() []*shot.Shot { return l.current.Load().Records }

// State returns the vial state of the current snapshot.
func (l *Ledger) State() supply.State { return l.current.Load().State }

// Err returns the store condition recorded by the last failure, or nil once a
// snapshot has been applied since.
func (l *Ledger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// apply is the store callback.
func (l *Ledger) apply(records []*shot.Shot, err error) {
	if err != nil {
		l.fail(storeError("stream", err))
		return
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.err = nil
	listeners := l.listeners
	l.mu.Unlock()

	ordered := make([]*shot.Shot, len(records))
	copy(ordered, records)
	shot.Sort(ordered)

	snap := &Snapshot{
		Records:    ordered,
		State:      supply.Compute(ordered, l.capacity, l.shotSize),
		Version:    l.version.Add(1),
		ReceivedAt: l.clock(),
	}
	l.current.Store(snap)

	l.logger.Debug("ledger snapshot applied",
		"version", snap.Version,
		"records", len(ordered),
		"remaining_ml", snap.State.RemainingMl.FormatMl(),
		"issues", len(snap.State.Issues),
	)

	for _, fn := range listeners {
		fn(snap)
	}
}

// fail keeps the last good snapshot and records err.
func (l *Ledger) fail(err error) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.err = err
	listeners := l.errListeners
	l.mu.Unlock()

	l.logger.Warn("ledger store unavailable, keeping last snapshot",
		"version", l.current.Load().Version,
		"error", err,
	)

	for _, fn := range listeners {
		fn(err)
	}
}
