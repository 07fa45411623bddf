// Package memory provides an in-process store. Subscribers are notified
// synchronously, before the mutating call returns.
package memory

import (
	"context"
	"fmt"
	"sync"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	vialstore "github.com/xraph/vial/store"
	"github.com/xraph/vial/store/notify"
	"github.com/xraph/vial/types"
)

// compile-time interface check
var _ vialstore.Store = (*Store)(nil)

// Operations counted by Calls and targeted by FailNext.
const (
	OpSubscribe = "subscribe"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
)

// Store keeps records in insertion order.
type Store struct {
	mu     sync.RWMutex
	shots  map[string]*shot.Shot
	order  []string
	closed bool

	// Fault injection and call accounting
	failures map[string]error
	calls    map[string]int

	hub *notify.Hub
}

// New creates an empty store.
func New() *Store {
	s := &Store{
		shots:    make(map[string]*shot.Shot),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	s.hub = notify.New(func(ctx context.Context) ([]*shot.Shot, error) {
		return s.List(ctx, shot.ListOpts{})
	})
	return s
}

// FailNext makes the next call of op return err without side effects.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// BreakStream delivers err to every subscriber as a stream failure.
func (s *Store) BreakStream(err error) {
	s.hub.Fail(err)
}

// Calls returns how often op was invoked, failed calls included.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int { return s.hub.Subscribers() }

// Seed inserts records as they are, bypassing notification. Records without
// an id get one.
func (s *Store) Seed(records ...*shot.Shot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		cp := r.Copy()
		if cp.ID.IsNil() {
			cp.ID = id.NewShotID()
		}
		if cp.CreatedAt.IsZero() {
			cp.Entity = types.NewEntity()
		}
		if _, exists := s.shots[cp.ID.String()]; !exists {
			s.order = append(s.order, cp.ID.String())
		}
		s.shots[cp.ID.String()] = cp
	}
}

// Event store implementation

func (s *Store) Subscribe(ctx context.Context, fn shot.SnapshotFunc) (shot.Unsubscribe, error) {
	if err := s.begin(OpSubscribe); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, fn)
}

func (s *Store) Create(ctx context.Context, f shot.Fields) (id.ShotID, error) {
	if err := s.begin(OpCreate); err != nil {
		return id.Nil, err
	}

	r := &shot.Shot{
		Entity: types.NewEntity(),
		ID:     id.NewShotID(),
		Fields: f,
	}

	s.mu.Lock()
	s.shots[r.ID.String()] = r
	s.order = append(s.order, r.ID.String())
	s.mu.Unlock()

	s.hub.Publish(ctx)
	return r.ID, nil
}

func (s *Store) Update(ctx context.Context, shotID id.ShotID, f shot.Fields) error {
	if err := s.begin(OpUpdate); err != nil {
		return err
	}

	s.mu.Lock()
	r, ok := s.shots[shotID.String()]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("vial/memory: update %s: %w", shotID, vial.ErrNotFound)
	}
	updated := r.Copy()
	updated.Fields = f
	updated.Touch()
	s.shots[shotID.String()] = updated
	s.mu.Unlock()

	s.hub.Publish(ctx)
	return nil
}

func (s *Store) Delete(ctx context.Context, shotID id.ShotID) error {
	if err := s.begin(OpDelete); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.shots[shotID.String()]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("vial/memory: delete %s: %w", shotID, vial.ErrNotFound)
	}
	delete(s.shots, shotID.String())
	for i, key := range s.order {
		if key == shotID.String() {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.hub.Publish(ctx)
	return nil
}

func (s *Store) Get(_ context.Context, shotID id.ShotID) (*shot.Shot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, vial.ErrStoreClosed
	}
	if r, ok := s.shots[shotID.String()]; ok {
		return r.Copy(), nil
	}
	return nil, fmt.Errorf("vial/memory: get %s: %w", shotID, vial.ErrNotFound)
}

func (s *Store) List(_ context.Context, opts shot.ListOpts) ([]*shot.Shot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, vial.ErrStoreClosed
	}

	result := make([]*shot.Shot, 0, len(s.order))
	for _, key := range s.order {
		result = append(result, s.shots[key].Copy())
	}
	shot.Sort(result)

	return opts.Window(result), nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return vial.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.hub.Close()
	return nil
}

// begin counts a call of op and returns an injected or closed-store error.
func (s *Store) begin(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[op]++
	if s.closed {
		return vial.ErrStoreClosed
	}
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}
