// Package id defines the identity of usage records.
//
// A ShotID is a TypeID ("shot_" followed by a UUIDv7 suffix), so ids sort
// by creation time and survive URLs unescaped. The zero value is Nil and
// marks a draft that has never been saved.
package id

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix is the type tag of a TypeID.
type Prefix string

// PrefixShot tags usage records.
const PrefixShot Prefix = "shot"

// ErrInvalid is returned for strings that are not shot ids.
var ErrInvalid = errors.New("id: invalid shot id")

// ShotID identifies a persisted usage record.
//
//nolint:recvcheck // Scan and UnmarshalText need pointer receivers.
type ShotID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the id of an unsaved record.
var Nil ShotID

// NewShotID returns a fresh id.
func NewShotID() ShotID {
	tid, err := typeid.Generate(string(PrefixShot))
	if err != nil {
		// The prefix is a constant; failure means a broken typeid build.
		panic(fmt.Sprintf("id: generate: %v", err))
	}
	return ShotID{tid: tid, set: true}
}

// ParseShotID parses s, rejecting other prefixes.
func ParseShotID(s string) (ShotID, error) {
	if s == "" {
		return Nil, fmt.Errorf("%w: empty", ErrInvalid)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("%w %q: %w", ErrInvalid, s, err)
	}
	if p := Prefix(tid.Prefix()); p != PrefixShot {
		return Nil, fmt.Errorf("%w %q: prefix %q", ErrInvalid, s, p)
	}
	return ShotID{tid: tid, set: true}, nil
}

// String returns the TypeID form, or "" for Nil.
func (s ShotID) String() string {
	if !s.set {
		return ""
	}
	return s.tid.String()
}

// Prefix returns PrefixShot, or "" for Nil.
func (s ShotID) Prefix() Prefix {
	if !s.set {
		return ""
	}
	return Prefix(s.tid.Prefix())
}

// IsNil reports whether s is Nil.
func (s ShotID) IsNil() bool { return !s.set }

// MarshalText encodes Nil as an empty string.
func (s ShotID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes an empty string as Nil.
func (s *ShotID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*s = Nil
		return nil
	}
	parsed, err := ParseShotID(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores Nil as NULL.
func (s ShotID) Value() (driver.Value, error) {
	if !s.set {
		return nil, nil //nolint:nilnil // NULL
	}
	return s.String(), nil
}

// Scan reads a TEXT column.
func (s *ShotID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Nil
		return nil
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	}
	return fmt.Errorf("id: cannot scan %T into ShotID", src)
}
