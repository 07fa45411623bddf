// Package mongo implements the vial store on MongoDB via Grove ORM.
//
// Subscriptions follow a change stream on the shots collection and re-read
// the full set on every change. Change streams need a replica set; on a
// standalone server pass WithChangeStream(false), optionally with
// WithPollInterval, and the store publishes its own writes.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	vialstore "github.com/xraph/vial/store"
	"github.com/xraph/vial/store/notify"
	"github.com/xraph/vial/types"
)

// Collection name constants.
const (
	colShots = "vial_shots"
)

// DefaultRetryInterval is the wait before reopening a failed change stream.
const DefaultRetryInterval = 2 * time.Second

// compile-time interface check
var _ vialstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	hub    *notify.Hub
	logger *slog.Logger
	retry  time.Duration
	stream bool
	poll   time.Duration

	// open starts a change stream on the shots collection.
	open func(ctx context.Context) (changeStream, error)
}

// changeStream is the part of *mongo.ChangeStream the follower uses.
type changeStream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithRetryInterval sets the wait before reopening a failed change stream.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retry = d
		}
	}
}

// WithChangeStream turns the change stream follower on or off. On by default.
func WithChangeStream(enabled bool) Option {
	return func(s *Store) { s.stream = enabled }
}

// WithPollInterval re-reads the collection every d while there are
// subscribers, for deployments without change streams.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.poll = d }
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		mdb:    mongodriver.Unwrap(db),
		logger: slog.Default(),
		retry:  DefaultRetryInterval,
		stream: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.open = s.openChangeStream
	s.hub = s.newHub(func(ctx context.Context) ([]*shot.Shot, error) {
		return s.List(ctx, shot.ListOpts{})
	})
	return s
}

// newHub builds the subscriber hub. The change stream follower runs while
// the hub has subscribers.
func (s *Store) newHub(list notify.ListFunc) *notify.Hub {
	opts := []notify.Option{notify.WithLogger(s.logger), notify.WithPollInterval(s.poll)}
	if s.stream {
		opts = append(opts, notify.WithFollower(s.watch))
	}
	return notify.New(list, opts...)
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the vial collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("vial/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close stops the change stream and closes the database connection.
func (s *Store) Close() error {
	s.hub.Close()
	return s.db.Close()
}

// ==================== Event Store ====================

func (s *Store) Subscribe(ctx context.Context, fn shot.SnapshotFunc) (shot.Unsubscribe, error) {
	unsubscribe, err := s.hub.Subscribe(ctx, fn)
	if err != nil {
		return nil, fmt.Errorf("vial/mongo: subscribe: %w", err)
	}
	return unsubscribe, nil
}

func (s *Store) Create(ctx context.Context, f shot.Fields) (id.ShotID, error) {
	shotID := id.NewShotID()
	m := toShotModel(shotID, f, types.NewEntity())
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return id.Nil, fmt.Errorf("vial/mongo: create: %w", err)
	}

	s.hub.Refresh(ctx)
	return shotID, nil
}

func (s *Store) Update(ctx context.Context, shotID id.ShotID, f shot.Fields) error {
	res, err := s.mdb.NewUpdate((*shotModel)(nil)).
		Filter(bson.M{"_id": shotID.String()}).
		Set("date", f.Date).
		Set("brand", f.Brand).
		Set("type", f.Type).
		Set("amount_ml", f.AmountMl).
		Set("amount_mg", f.AmountMg).
		Set("location", f.Location).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vial/mongo: update: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("vial/mongo: update %s: %w", shotID, vial.ErrNotFound)
	}

	s.hub.Refresh(ctx)
	return nil
}

func (s *Store) Delete(ctx context.Context, shotID id.ShotID) error {
	res, err := s.mdb.NewDelete((*shotModel)(nil)).
		Filter(bson.M{"_id": shotID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vial/mongo: delete: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("vial/mongo: delete %s: %w", shotID, vial.ErrNotFound)
	}

	s.hub.Refresh(ctx)
	return nil
}

func (s *Store) Get(ctx context.Context, shotID id.ShotID) (*shot.Shot, error) {
	var m shotModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": shotID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("vial/mongo: get %s: %w", shotID, vial.ErrNotFound)
		}
		return nil, fmt.Errorf("vial/mongo: get: %w", err)
	}
	return fromShotModel(&m)
}

func (s *Store) List(ctx context.Context, opts shot.ListOpts) ([]*shot.Shot, error) {
	var models []shotModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(listSort())

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vial/mongo: list: %w", err)
	}

	result := make([]*shot.Shot, len(models))
	for i := range models {
		r, err := fromShotModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("vial/mongo: list: %w", err)
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Change stream ====================

// watch re-reads the collection on every change event until ctx is done. A
// broken stream is reported to subscribers once per outage and reopened
// after the retry interval.
func (s *Store) watch(ctx context.Context) {
	healthy := true
	for {
		err := s.follow(ctx)
		if ctx.Err() != nil {
			return
		}

		if healthy {
			s.logger.Warn("vial/mongo: change stream broken", "error", err)
			s.hub.Fail(fmt.Errorf("vial/mongo: watch: %w", err))
		}
		healthy = false

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retry):
		}

		if s.resume(ctx) {
			healthy = true
		}
	}
}

// follow runs one change stream until it ends. Writes that landed before the
// stream opened are picked up by a refresh right after it opens.
func (s *Store) follow(ctx context.Context) error {
	cs, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer cs.Close(context.Background()) //nolint:errcheck // closing a finished stream

	s.hub.Refresh(ctx)
	for cs.Next(ctx) {
		s.hub.Refresh(ctx)
	}
	if err := cs.Err(); err != nil {
		return err
	}
	return errors.New("change stream closed")
}

func (s *Store) openChangeStream(ctx context.Context) (changeStream, error) {
	cs, err := s.mdb.Collection(colShots).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// resume re-reads the set after an outage. It reports whether the read
// worked, which also clears the subscribers' error state.
func (s *Store) resume(ctx context.Context) bool {
	if _, err := s.List(ctx, shot.ListOpts{Limit: 1}); err != nil {
		return false
	}
	s.hub.Publish(ctx)
	return true
}

// ==================== Helpers ====================

// listSort is date descending with creation order breaking ties.
func listSort() bson.D {
	return bson.D{
		{Key: "date", Value: -1},
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	}
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colShots: {
			{Keys: listSort()},
		},
	}
}
