// Package shot defines usage records and the event store contract the
// tracker consumes.
package shot

import (
	"context"

	"github.com/xraph/vial/id"
)

// SnapshotFunc receives the full record set, ordered by date descending, on
// every change. A non-nil err reports a stream failure; records is nil then.
type SnapshotFunc func(records []*Shot, err error)

// Unsubscribe releases a subscription. It is safe to call more than once.
type Unsubscribe func()

// Store persists usage records, assigns their identity and streams ordered
// snapshots of the full set.
type Store interface {
	Subscribe(ctx context.Context, fn SnapshotFunc) (Unsubscribe, error)
	Create(ctx context.Context, f Fields) (id.ShotID, error)
	Update(ctx context.Context, shotID id.ShotID, f Fields) error
	Delete(ctx context.Context, shotID id.ShotID) error
	Get(ctx context.Context, shotID id.ShotID) (*Shot, error)
	List(ctx context.Context, opts ListOpts) ([]*Shot, error)
}

// ListOpts bounds a List call. A Limit of zero or below means no limit and
// an Offset below zero is treated as zero.
type ListOpts struct {
	Limit  int
	Offset int
}

// Window applies opts to an already ordered slice.
func (o ListOpts) Window(records []*Shot) []*Shot {
	start := min(max(o.Offset, 0), len(records))
	end := len(records)
	if o.Limit > 0 && o.Limit < end-start {
		end = start + o.Limit
	}
	return records[start:end]
}
