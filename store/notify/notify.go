// Package notify fans record-set snapshots out to store subscribers.
//
// Backends without a native change feed publish after each local write and
// may poll to pick up writes from other processes.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/shot"
)

// ListFunc loads the full record set ordered by date descending.
type ListFunc func(ctx context.Context) ([]*shot.Shot, error)

// FollowFunc tracks a change feed and calls Refresh or Fail on the hub. It
// runs while the hub has subscribers and must return once ctx is done.
type FollowFunc func(ctx context.Context)

// Hub delivers snapshots to subscribers. Deliveries are serialized, so every
// subscriber observes snapshots in publish order.
type Hub struct {
	list         ListFunc
	logger       *slog.Logger
	pollInterval time.Duration
	pollTimeout  time.Duration
	follow       FollowFunc

	mu     sync.Mutex
	subs   map[uint64]shot.SnapshotFunc
	nextID uint64
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// deliver serializes list-and-broadcast rounds.
	deliver     sync.Mutex
	fingerprint string
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

// WithPollInterval makes the hub re-list every d while it has subscribers and
// publish when the record set changed. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(h *Hub) { h.pollInterval = d }
}

// WithPollTimeout bounds one poll. Defaults to the poll interval.
func WithPollTimeout(d time.Duration) Option {
	return func(h *Hub) { h.pollTimeout = d }
}

// WithFollower runs fn while the hub has subscribers.
func WithFollower(fn FollowFunc) Option {
	return func(h *Hub) { h.follow = fn }
}

// New creates a hub that loads snapshots with list.
func New(list ListFunc, opts ...Option) *Hub {
	h := &Hub{
		list:   list,
		logger: slog.Default(),
		subs:   make(map[uint64]shot.SnapshotFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.pollTimeout <= 0 {
		h.pollTimeout = h.pollInterval
	}
	return h
}

// Subscribe registers fn and delivers the current record set to it before
// returning. A failed initial load returns the error and registers nothing.
func (h *Hub) Subscribe(ctx context.Context, fn shot.SnapshotFunc) (shot.Unsubscribe, error) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, vial.ErrStoreClosed
	}
	h.mu.Unlock()

	records, err := h.list(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, vial.ErrStoreClosed
	}
	subID := h.nextID
	h.nextID++
	h.subs[subID] = fn
	if len(h.subs) == 1 {
		h.startLocked()
	}
	h.mu.Unlock()

	h.fingerprint = Fingerprint(records)
	fn(Copy(records), nil)

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(subID) })
	}, nil
}

// Publish re-lists the record set and delivers it to every subscriber. A
// failed load is delivered as a stream error.
func (h *Hub) Publish(ctx context.Context) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	if h.Subscribers() == 0 {
		return
	}
	h.publishLocked(ctx, false)
}

// Refresh is Publish that skips delivery when the record set is unchanged
// since the last delivery.
func (h *Hub) Refresh(ctx context.Context) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	if h.Subscribers() == 0 {
		return
	}
	h.publishLocked(ctx, true)
}

// Fail delivers err to every subscriber.
func (h *Hub) Fail(err error) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	for _, fn := range h.snapshotSubs() {
		fn(nil, err)
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscription and waits for the poller and follower to
// stop.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.subs = make(map[uint64]shot.SnapshotFunc)
	h.stopLocked()
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hub) remove(subID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, subID)
	if len(h.subs) == 0 {
		h.stopLocked()
	}
}

// startLocked starts the poller and follower. Requires h.mu.
func (h *Hub) startLocked() {
	if h.pollInterval <= 0 && h.follow == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	if h.pollInterval > 0 {
		h.wg.Add(1)
		go h.poll(ctx)
	}
	if h.follow != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.follow(ctx)
		}()
	}
}

// stopLocked cancels the poller and follower. Requires h.mu.
func (h *Hub) stopLocked() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

func (h *Hub) snapshotSubs() []shot.SnapshotFunc {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]shot.SnapshotFunc, 0, len(h.subs))
	for i := uint64(0); i < h.nextID; i++ {
		if fn, ok := h.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// publishLocked requires h.deliver. With onlyChanged set an unchanged record
// set is not delivered.
func (h *Hub) publishLocked(ctx context.Context, onlyChanged bool) {
	records, err := h.list(ctx)
	if err != nil {
		h.logger.Warn("notify: list failed", "error", err)
		for _, fn := range h.snapshotSubs() {
			fn(nil, err)
		}
		return
	}

	fp := Fingerprint(records)
	if onlyChanged && fp == h.fingerprint {
		return
	}
	h.fingerprint = fp

	for _, fn := range h.snapshotSubs() {
		fn(Copy(records), nil)
	}
}

func (h *Hub) poll(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pollCtx, cancel := context.WithTimeout(ctx, h.pollTimeout)
			h.deliver.Lock()
			h.publishLocked(pollCtx, true)
			h.deliver.Unlock()
			cancel()
		}
	}
}

// Copy returns deep copies of records so subscribers never share them.
func Copy(records []*shot.Shot) []*shot.Shot {
	out := make([]*shot.Shot, len(records))
	for i, r := range records {
		out[i] = r.Copy()
	}
	return out
}

// Fingerprint hashes ids, fields and update times of records in order.
func Fingerprint(records []*shot.Shot) string {
	h := sha256.New()
	for _, r := range records {
		for _, part := range []string{
			r.ID.String(), r.Date, r.Brand, r.Type, r.AmountMl, r.AmountMg, r.Location,
			r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		} {
			h.Write([]byte(part))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
