package vial_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/store/memory"
	"github.com/xraph/vial/supply"
)

var today = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startTracker seeds a memory store with records and starts a tracker on it.
func startTracker(t *testing.T, records []*shot.Shot, opts ...vial.Option) (*vial.Tracker, *memory.Store) {
	t.Helper()

	s := memory.New()
	s.Seed(records...)

	opts = append([]vial.Option{vial.WithClock(fixedClock), vial.WithLogger(quietLogger())}, opts...)
	tr := vial.New(s, opts...)
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(func() { _ = tr.Stop() })

	return tr, s
}

func rec(date, ml string) *shot.Shot {
	return &shot.Shot{ID: id.NewShotID(), Fields: shot.Fields{Date: date, AmountMl: ml, Brand: "Humalog", Type: "rapid", Location: "arm"}}
}

// stubStore lets a test push arbitrary snapshots to a ledger.
type stubStore struct {
	mu           sync.Mutex
	fn           shot.SnapshotFunc
	subscribeErr error
	unsubscribed int
}

func (s *stubStore) Subscribe(_ context.Context, fn shot.SnapshotFunc) (shot.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.fn = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unsubscribed++
	}, nil
}

func (s *stubStore) push(records []*shot.Shot, err error) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	fn(records, err)
}

func (s *stubStore) Create(context.Context, shot.Fields) (id.ShotID, error) {
	return id.NewShotID(), nil
}

func (s *stubStore) Update(context.Context, id.ShotID, shot.Fields) error { return nil }

func (s *stubStore) Delete(context.Context, id.ShotID) error { return nil }

func (s *stubStore) Get(context.Context, id.ShotID) (*shot.Shot, error) {
	return nil, vial.ErrNotFound
}

func (s *stubStore) List(context.Context, shot.ListOpts) ([]*shot.Shot, error) { return nil, nil }

// events records plugin hook calls.
type events struct {
	mu         sync.Mutex
	created    []id.ShotID
	updated    []id.ShotID
	deleted    []id.ShotID
	duplicated [][2]id.ShotID
	blocked    int
	lowSupply  []int64
	storeOps   []string
	snapshots  int
}

func (e *events) Name() string { return "events" }

func (e *events) OnShotCreated(_ context.Context, shotID id.ShotID, _ shot.Fields) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, shotID)
	return nil
}

func (e *events) OnShotUpdated(_ context.Context, shotID id.ShotID, _ shot.Fields) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updated = append(e.updated, shotID)
	return nil
}

func (e *events) OnShotDeleted(_ context.Context, shotID id.ShotID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, shotID)
	return nil
}

func (e *events) OnShotDuplicated(_ context.Context, sourceID, createdID id.ShotID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duplicated = append(e.duplicated, [2]id.ShotID{sourceID, createdID})
	return nil
}

func (e *events) OnCapacityBlocked(context.Context, supply.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocked++
	return nil
}

func (e *events) OnLowSupply(_ context.Context, state supply.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lowSupply = append(e.lowSupply, state.ShotsRemaining)
	return nil
}

func (e *events) OnStoreError(_ context.Context, op string, _ error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storeOps = append(e.storeOps, op)
	return nil
}

func (e *events) OnSnapshotApplied(context.Context, int, supply.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshots++
	return nil
}
