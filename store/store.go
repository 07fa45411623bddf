// Package store defines the storage contract shared by every vial backend.
package store

import (
	"context"

	"github.com/xraph/vial/shot"
)

// Store is the unified storage interface: the shot event store plus the
// lifecycle methods every backend provides.
type Store interface {
	shot.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
