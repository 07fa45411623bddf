package shot

import (
	"sort"
	"strings"
	"time"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/types"
)

// DateLayout is the calendar date format of Fields.Date.
const DateLayout = "2006-01-02"

// Fields are the user-editable parts of a usage record.
// Amounts stay strings so that malformed input survives a round trip and can
// be reported instead of silently rewritten.
type Fields struct {
	Date     string `json:"date"`
	Brand    string `json:"brand"`
	Type     string `json:"type"`
	AmountMl string `json:"amountMl"`
	AmountMg string `json:"amountMg"`
	Location string `json:"location"`
}

// Shot is a persisted usage record.
type Shot struct {
	types.Entity
	ID id.ShotID `json:"id"`
	Fields
}

// Today formats t as a calendar date.
func Today(t time.Time) string { return t.Format(DateLayout) }

// Clone returns a copy of the fields with the date set to date.
func (f Fields) Clone(date string) Fields {
	f.Date = date
	return f
}

// Normalize trims surrounding whitespace from every field.
func (f Fields) Normalize() Fields {
	return Fields{
		Date:     strings.TrimSpace(f.Date),
		Brand:    strings.TrimSpace(f.Brand),
		Type:     strings.TrimSpace(f.Type),
		AmountMl: strings.TrimSpace(f.AmountMl),
		AmountMg: strings.TrimSpace(f.AmountMg),
		Location: strings.TrimSpace(f.Location),
	}
}

// ValidDate reports whether Date is a calendar date in DateLayout.
func (f Fields) ValidDate() bool {
	_, err := time.Parse(DateLayout, f.Date)
	return err == nil
}

// Volume parses AmountMl. ok is false when the value is empty, malformed or
// negative; v is then zero.
func (f Fields) Volume() (v types.Volume, ok bool) {
	parsed, err := types.ParseVolume(f.AmountMl)
	if err != nil || parsed.IsNegative() {
		return types.ZeroVolume(), false
	}
	return parsed, true
}

// Copy returns a deep copy of the record.
func (s *Shot) Copy() *Shot {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// Sort orders records by date descending. The sort is stable, so records of
// the same date keep the order the store delivered them in.
func Sort(records []*Shot) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})
}

// Find returns the record with the given id, or nil.
func Find(records []*Shot, shotID id.ShotID) *Shot {
	for _, r := range records {
		if r.ID == shotID {
			return r
		}
	}
	return nil
}
