package vial

import "github.com/xraph/vial/id"

// ShotID identifies a persisted usage record.
type ShotID = id.ShotID

// ParseShotID parses a "shot_..." TypeID string.
var ParseShotID = id.ParseShotID
