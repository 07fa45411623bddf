package supply_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
	"github.com/xraph/vial/types"
)

func records(amounts ...string) []*shot.Shot {
	out := make([]*shot.Shot, len(amounts))
	for i, a := range amounts {
		out[i] = &shot.Shot{ID: id.NewShotID(), Fields: shot.Fields{Date: "2024-01-01", AmountMl: a}}
	}
	return out
}

func TestComputeFullVial(t *testing.T) {
	s := supply.Compute(nil, supply.DefaultCapacity, supply.DefaultShotSize)

	if s.RemainingMl.FormatMl() != "10.00" {
		t.Errorf("remaining: got %s, want 10.00", s.RemainingMl.FormatMl())
	}
	if s.ShotsRemaining != 90 {
		t.Errorf("shots remaining: got %d, want 90", s.ShotsRemaining)
	}
	if s.DaysRemaining != 90 {
		t.Errorf("days remaining: got %d, want 90", s.DaysRemaining)
	}
	if s.ShotsTaken != 0 || s.Overdrawn || len(s.Issues) != 0 {
		t.Errorf("unexpected state %+v", s)
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name           string
		amounts        []string
		remaining      string
		shotsTaken     int
		shotsRemaining int64
		overdrawn      bool
		issues         int
	}{
		{"one shot", []string{"0.11"}, "9.89", 1, 89, false, 0},
		{"several shots", []string{"0.11", "0.11", "0.2"}, "9.58", 3, 87, false, 0},
		{"exact empty", []string{"5", "5"}, "0.00", 2, 0, false, 0},
		{"overshoot clamps", []string{"6", "6"}, "0.00", 2, 0, true, 0},
		{"malformed counts as zero", []string{"0.11", "abc", ""}, "9.89", 3, 89, false, 2},
		{"negative counts as zero", []string{"-1"}, "10.00", 1, 90, false, 1},
		{"nearly empty", []string{"9.95"}, "0.05", 1, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := supply.Compute(records(tt.amounts...), supply.DefaultCapacity, supply.DefaultShotSize)
			if s.RemainingMl.FormatMl() != tt.remaining {
				t.Errorf("remaining: got %s, want %s", s.RemainingMl.FormatMl(), tt.remaining)
			}
			if s.ShotsTaken != tt.shotsTaken {
				t.Errorf("shots taken: got %d, want %d", s.ShotsTaken, tt.shotsTaken)
			}
			if s.ShotsRemaining != tt.shotsRemaining {
				t.Errorf("shots remaining: got %d, want %d", s.ShotsRemaining, tt.shotsRemaining)
			}
			if s.DaysRemaining != s.ShotsRemaining {
				t.Errorf("days remaining %d should equal shots remaining %d", s.DaysRemaining, s.ShotsRemaining)
			}
			if s.Overdrawn != tt.overdrawn {
				t.Errorf("overdrawn: got %v, want %v", s.Overdrawn, tt.overdrawn)
			}
			if len(s.Issues) != tt.issues {
				t.Errorf("issues: got %d, want %d (%+v)", len(s.Issues), tt.issues, s.Issues)
			}
		})
	}
}

func TestComputeReportsMalformedFields(t *testing.T) {
	rs := records("oops")
	rs[0].AmountMg = "1,2"

	s := supply.Compute(rs, supply.DefaultCapacity, supply.DefaultShotSize)
	if len(s.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", s.Issues)
	}
	if s.Issues[0] != (supply.Issue{ShotID: rs[0].ID, Field: supply.FieldAmountMl, Value: "oops"}) {
		t.Errorf("unexpected ml issue %+v", s.Issues[0])
	}
	if s.Issues[1].Field != supply.FieldAmountMg || s.Issues[1].Value != "1,2" {
		t.Errorf("unexpected mg issue %+v", s.Issues[1])
	}

	// An mg amount never affects volume.
	rs = records("0.11")
	rs[0].AmountMg = "500"
	s = supply.Compute(rs, supply.DefaultCapacity, supply.DefaultShotSize)
	if s.RemainingMl.FormatMl() != "9.89" || len(s.Issues) != 0 {
		t.Errorf("mg leaked into volume math: %+v", s)
	}
}

func TestComputeTreatsOutOfRangeAmountsAsMalformed(t *testing.T) {
	rs := records("1e-3000000", "0.11", "1e3000000")

	s := supply.Compute(rs, supply.DefaultCapacity, supply.DefaultShotSize)
	if len(s.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", s.Issues)
	}
	if s.Issues[0].ShotID != rs[0].ID || s.Issues[1].ShotID != rs[2].ID {
		t.Errorf("issues point at the wrong records: %+v", s.Issues)
	}
	if s.UsedMl.FormatMl() != "0.11" || s.ShotsRemaining != 89 {
		t.Errorf("out-of-range amounts counted: %+v", s)
	}
}

func TestComputeRemainingWithinCapacity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := range 200 {
		n := rng.IntN(150)
		amounts := make([]string, n)
		for j := range amounts {
			amounts[j] = fmt.Sprintf("%.2f", rng.Float64()*0.5)
		}

		s := supply.Compute(records(amounts...), supply.DefaultCapacity, supply.DefaultShotSize)
		if s.RemainingMl.IsNegative() || s.RemainingMl.GreaterThan(supply.DefaultCapacity) {
			t.Fatalf("case %d: remaining %s outside [0, capacity]", i, s.RemainingMl)
		}
		if want := s.RemainingMl.Portions(supply.DefaultShotSize); s.ShotsRemaining != want {
			t.Fatalf("case %d: shots remaining %d, want floor %d", i, s.ShotsRemaining, want)
		}
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	rs := records("0.11", "x", "0.3")
	first := supply.Compute(rs, supply.DefaultCapacity, supply.DefaultShotSize)
	second := supply.Compute(rs, supply.DefaultCapacity, supply.DefaultShotSize)

	if !first.Equal(second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestCanRegister(t *testing.T) {
	tests := []struct {
		remaining string
		want      bool
	}{
		{"10", true},
		{"0.11", true},
		{"0.05", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run(tt.remaining, func(t *testing.T) {
			used := supply.DefaultCapacity.Subtract(types.Ml(tt.remaining))
			s := supply.Compute(records(used.Decimal().String()), supply.DefaultCapacity, supply.DefaultShotSize)
			if got := supply.CanRegister(s); got != tt.want {
				t.Errorf("CanRegister with %s ml left: got %v, want %v", tt.remaining, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	s := supply.Empty(supply.DefaultCapacity, supply.DefaultShotSize)
	want := "Remaining Insulin: 10.00 ml\nShots Taken: 0\nEstimated Shots Remaining: 90\nEstimated Days Remaining: 90"
	if got := s.Format(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func BenchmarkCompute(b *testing.B) {
	rs := make([]*shot.Shot, 90)
	for i := range rs {
		rs[i] = &shot.Shot{Fields: shot.Fields{AmountMl: "0.11"}}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = supply.Compute(rs, supply.DefaultCapacity, supply.DefaultShotSize)
	}
}
