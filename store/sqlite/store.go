// Package sqlite implements the vial store on SQLite via Grove ORM.
//
// SQLite has no change feed. Subscribers are notified after every write made
// through this store; pass notify.WithPollInterval to also pick up writes
// from other processes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	vialstore "github.com/xraph/vial/store"
	"github.com/xraph/vial/store/notify"
	"github.com/xraph/vial/types"
)

// compile-time interface check
var _ vialstore.Store = (*Store)(nil)

// listOrder is date descending with creation order breaking ties.
const listOrder = "date DESC, created_at ASC, id ASC"

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
	hub *notify.Hub
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB, opts ...notify.Option) *Store {
	s := &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
	s.hub = notify.New(func(ctx context.Context) ([]*shot.Shot, error) {
		return s.List(ctx, shot.ListOpts{})
	}, opts...)
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("vial/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("vial/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close stops notifications and closes the database connection.
func (s *Store) Close() error {
	s.hub.Close()
	return s.db.Close()
}

// ==================== Event Store ====================

func (s *Store) Subscribe(ctx context.Context, fn shot.SnapshotFunc) (shot.Unsubscribe, error) {
	unsubscribe, err := s.hub.Subscribe(ctx, fn)
	if err != nil {
		return nil, fmt.Errorf("vial/sqlite: subscribe: %w", err)
	}
	return unsubscribe, nil
}

func (s *Store) Create(ctx context.Context, f shot.Fields) (id.ShotID, error) {
	shotID := id.NewShotID()
	m := toShotModel(shotID, f, types.NewEntity())
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return id.Nil, fmt.Errorf("vial/sqlite: create: %w", err)
	}

	s.hub.Publish(ctx)
	return shotID, nil
}

func (s *Store) Update(ctx context.Context, shotID id.ShotID, f shot.Fields) error {
	res, err := s.sdb.NewUpdate((*shotModel)(nil)).
		Set("date = ?", f.Date).
		Set("brand = ?", f.Brand).
		Set("shot_type = ?", f.Type).
		Set("amount_ml = ?", f.AmountMl).
		Set("amount_mg = ?", f.AmountMg).
		Set("location = ?", f.Location).
		Set("updated_at = ?", now()).
		Where("id = ?", shotID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vial/sqlite: update: %w", err)
	}
	if err := expectRow(res, "update", shotID); err != nil {
		return err
	}

	s.hub.Publish(ctx)
	return nil
}

func (s *Store) Delete(ctx context.Context, shotID id.ShotID) error {
	res, err := s.sdb.NewDelete((*shotModel)(nil)).
		Where("id = ?", shotID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vial/sqlite: delete: %w", err)
	}
	if err := expectRow(res, "delete", shotID); err != nil {
		return err
	}

	s.hub.Publish(ctx)
	return nil
}

func (s *Store) Get(ctx context.Context, shotID id.ShotID) (*shot.Shot, error) {
	m := new(shotModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", shotID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("vial/sqlite: get %s: %w", shotID, vial.ErrNotFound)
		}
		return nil, fmt.Errorf("vial/sqlite: get: %w", err)
	}
	return fromShotModel(m)
}

func (s *Store) List(ctx context.Context, opts shot.ListOpts) ([]*shot.Shot, error) {
	var models []shotModel
	q := s.sdb.NewSelect(&models).OrderExpr(listOrder)

	// SQLite rejects OFFSET without LIMIT; an offset alone is applied below.
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vial/sqlite: list: %w", err)
	}

	result := make([]*shot.Shot, len(models))
	for i := range models {
		r, err := fromShotModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("vial/sqlite: list: %w", err)
		}
		result[i] = r
	}
	if opts.Limit <= 0 {
		return opts.Window(result), nil
	}
	return result, nil
}

// ==================== Helpers ====================

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectRow(res rowsAffecter, op string, shotID id.ShotID) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vial/sqlite: %s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("vial/sqlite: %s %s: %w", op, shotID, vial.ErrNotFound)
	}
	return nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
