package shot_test

import (
	"testing"
	"time"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
)

func TestSortDateDescendingStable(t *testing.T) {
	a := &shot.Shot{ID: id.NewShotID(), Fields: shot.Fields{Date: "2024-01-01", Brand: "a"}}
	b := &shot.Shot{ID: id.NewShotID(), Fields: shot.Fields{Date: "2024-03-01", Brand: "b"}}
	c := &shot.Shot{ID: id.NewShotID(), Fields: shot.Fields{Date: "2024-01-01", Brand: "c"}}
	d := &shot.Shot{ID: id.NewShotID(), Fields: shot.Fields{Date: "2024-02-01", Brand: "d"}}

	records := []*shot.Shot{a, b, c, d}
	shot.Sort(records)

	want := []string{"b", "d", "a", "c"}
	for i, r := range records {
		if r.Brand != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, r.Brand, want[i])
		}
	}
}

func TestFieldsVolume(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
		want   string
	}{
		{"0.11", true, "0.11 ml"},
		{" 0.2 ", true, "0.20 ml"},
		{"", false, "0.00 ml"},
		{"abc", false, "0.00 ml"},
		{"-0.1", false, "0.00 ml"},
		{"1e-3000000", false, "0.00 ml"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			v, ok := shot.Fields{AmountMl: tt.amount}.Volume()
			if ok != tt.ok {
				t.Errorf("ok: got %v, want %v", ok, tt.ok)
			}
			if v.String() != tt.want {
				t.Errorf("volume: got %s, want %s", v.String(), tt.want)
			}
		})
	}
}

func TestCloneKeepsFieldsAndResetsDate(t *testing.T) {
	f := shot.Fields{Date: "2024-01-01", Brand: "Humalog", AmountMl: "0.11", AmountMg: "1.1", Location: "arm"}
	got := f.Clone("2026-10-14")

	if got.Date != "2026-10-14" {
		t.Errorf("date: got %q", got.Date)
	}
	if got.AmountMl != "0.11" || got.Brand != "Humalog" || got.Location != "arm" || got.AmountMg != "1.1" {
		t.Errorf("fields not preserved: %+v", got)
	}
	if f.Date != "2024-01-01" {
		t.Error("Clone mutated its receiver")
	}
}

func TestToday(t *testing.T) {
	ts := time.Date(2026, time.October, 14, 23, 59, 0, 0, time.UTC)
	if got := shot.Today(ts); got != "2026-10-14" {
		t.Errorf("got %q", got)
	}
	if !(shot.Fields{Date: shot.Today(ts)}).ValidDate() {
		t.Error("Today should produce a valid date")
	}
	if (shot.Fields{Date: "14/10/2026"}).ValidDate() {
		t.Error("non-ISO date should be invalid")
	}
}

func TestNormalizeAndFind(t *testing.T) {
	f := shot.Fields{Date: " 2024-01-01 ", Brand: " Lantus", AmountMl: "0.11 "}.Normalize()
	if f.Date != "2024-01-01" || f.Brand != "Lantus" || f.AmountMl != "0.11" {
		t.Errorf("normalize: %+v", f)
	}

	target := &shot.Shot{ID: id.NewShotID()}
	records := []*shot.Shot{{ID: id.NewShotID()}, target}
	if shot.Find(records, target.ID) != target {
		t.Error("Find did not return the target record")
	}
	if shot.Find(records, id.NewShotID()) != nil {
		t.Error("Find should return nil for unknown ids")
	}
}

func TestListOptsWindow(t *testing.T) {
	records := make([]*shot.Shot, 5)
	for i := range records {
		records[i] = &shot.Shot{ID: id.NewShotID()}
	}

	tests := []struct {
		name string
		opts shot.ListOpts
		want int
	}{
		{"all", shot.ListOpts{}, 5},
		{"limit", shot.ListOpts{Limit: 2}, 2},
		{"offset", shot.ListOpts{Offset: 3}, 2},
		{"offset past end", shot.ListOpts{Offset: 9, Limit: 2}, 0},
		{"negative offset", shot.ListOpts{Offset: -1, Limit: 2}, 2},
		{"negative limit", shot.ListOpts{Limit: -1}, 5},
		{"negative limit with offset", shot.ListOpts{Offset: 2, Limit: -3}, 3},
		{"both negative", shot.ListOpts{Offset: -4, Limit: -4}, 5},
		{"limit at end", shot.ListOpts{Offset: 4, Limit: 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(tt.opts.Window(records)); got != tt.want {
				t.Errorf("got %d records, want %d", got, tt.want)
			}
		})
	}
}
