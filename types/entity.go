package types

import "time"

// Entity carries store-managed timestamps. CreatedAt doubles as the
// store-assigned order used to break ties between records of the same date.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity stamps both times with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch moves UpdatedAt to now.
func (e *Entity) Touch() { e.UpdatedAt = time.Now().UTC() }
