// Package supply derives the state of a vial from its usage records.
//
// Everything here is a pure function of its inputs and safe to call on every
// ledger change.
package supply

import (
	"fmt"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/types"
)

// DosesPerDay is the projection policy: one shot is taken to last one day,
// so days remaining equals shots remaining.
const DosesPerDay = 1

// Defaults match a 10 ml vial dosed in 0.11 ml shots.
var (
	DefaultCapacity = types.Ml("10")
	DefaultShotSize = types.Ml("0.11")
)

// Field names a numeric record field.
type Field string

// Numeric fields that can carry malformed values.
const (
	FieldAmountMl Field = "amountMl"
	FieldAmountMg Field = "amountMg"
)

// Issue reports a value that was coerced to zero during aggregation.
type Issue struct {
	ShotID id.ShotID `json:"shot_id"`
	Field  Field     `json:"field"`
	Value  string    `json:"value"`
}

// State is the derived vial state for one ledger snapshot.
type State struct {
	CapacityMl     types.Volume `json:"capacity_ml"`
	ShotSizeMl     types.Volume `json:"shot_size_ml"`
	UsedMl         types.Volume `json:"used_ml"`
	RemainingMl    types.Volume `json:"remaining_ml"`
	ShotsTaken     int          `json:"shots_taken"`
	ShotsRemaining int64        `json:"shots_remaining"`
	DaysRemaining  int64        `json:"days_remaining"`
	// Overdrawn is set when recorded usage exceeds capacity; RemainingMl is
	// clamped to zero in that case.
	Overdrawn bool    `json:"overdrawn"`
	Issues    []Issue `json:"issues,omitempty"`
}

// Compute derives the vial state from records.
func Compute(records []*shot.Shot, capacity, shotSize types.Volume) State {
	used := types.ZeroVolume()
	var issues []Issue

	for _, r := range records {
		if v, ok := r.Volume(); ok {
			used = used.Add(v)
		} else {
			issues = append(issues, Issue{ShotID: r.ID, Field: FieldAmountMl, Value: r.AmountMl})
		}
		if r.AmountMg != "" {
			if _, ok := ParseAmount(r.AmountMg); !ok {
				issues = append(issues, Issue{ShotID: r.ID, Field: FieldAmountMg, Value: r.AmountMg})
			}
		}
	}

	remaining := capacity.Subtract(used).ClampZero()
	shots := remaining.Portions(shotSize)

	return State{
		CapacityMl:     capacity,
		ShotSizeMl:     shotSize,
		UsedMl:         used,
		RemainingMl:    remaining,
		ShotsTaken:     len(records),
		ShotsRemaining: shots,
		DaysRemaining:  shots / DosesPerDay,
		Overdrawn:      used.GreaterThan(capacity),
		Issues:         issues,
	}
}

// Empty returns the state of an unused vial.
func Empty(capacity, shotSize types.Volume) State {
	return Compute(nil, capacity, shotSize)
}

// ParseAmount parses a numeric field. Malformed, empty or negative values
// yield zero and ok == false.
func ParseAmount(s string) (types.Volume, bool) {
	return shot.Fields{AmountMl: s}.Volume()
}

// CanRegister reports whether enough volume is left for one more shot.
func CanRegister(s State) bool {
	return s.RemainingMl.AtLeast(s.ShotSizeMl)
}

// Equal reports whether two states describe the same vial.
func (s State) Equal(other State) bool {
	if !s.CapacityMl.Equal(other.CapacityMl) ||
		!s.ShotSizeMl.Equal(other.ShotSizeMl) ||
		!s.UsedMl.Equal(other.UsedMl) ||
		!s.RemainingMl.Equal(other.RemainingMl) ||
		s.ShotsTaken != other.ShotsTaken ||
		s.ShotsRemaining != other.ShotsRemaining ||
		s.DaysRemaining != other.DaysRemaining ||
		s.Overdrawn != other.Overdrawn ||
		len(s.Issues) != len(other.Issues) {
		return false
	}
	for i := range s.Issues {
		if s.Issues[i] != other.Issues[i] {
			return false
		}
	}
	return true
}

// Format renders the summary lines shown next to the ledger.
func (s State) Format() string {
	return fmt.Sprintf("Remaining Insulin: %s\nShots Taken: %d\nEstimated Shots Remaining: %d\nEstimated Days Remaining: %d",
		s.RemainingMl, s.ShotsTaken, s.ShotsRemaining, s.DaysRemaining)
}
