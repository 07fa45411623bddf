// Package types provides common types used across vial.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Volume is a liquid volume in milliliters.
// Arithmetic is exact decimal arithmetic, so 10 / 0.11 floors to 90 and
// 0.22 / 0.11 floors to 2.
type Volume struct {
	ml decimal.Decimal
}

// Ml creates a Volume from a decimal literal such as "0.11".
// It panics on malformed input and is meant for constants.
func Ml(s string) Volume {
	v, err := ParseVolume(s)
	if err != nil {
		panic(err)
	}
	return v
}

// MlFromFloat creates a Volume from a float64 amount of milliliters.
func MlFromFloat(f float64) Volume { return Volume{ml: decimal.NewFromFloat(f)} }

// Parse limits. Amounts past them are rejected so that arithmetic on a
// ledger stays bounded.
const (
	MaxScale         = 12
	MaxIntegerDigits = 12
)

// ErrOutOfRange is returned by ParseVolume for amounts past the parse limits.
var ErrOutOfRange = errors.New("out of range")

// ZeroVolume returns an empty Volume.
func ZeroVolume() Volume { return Volume{ml: decimal.Zero} }

// ParseVolume parses a numeric string in milliliters.
// Surrounding whitespace is ignored; an empty string is an error, and so is
// an amount with more than MaxScale decimals or MaxIntegerDigits whole digits.
func ParseVolume(s string) (Volume, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ZeroVolume(), fmt.Errorf("volume: parse %q: empty value", s)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return ZeroVolume(), fmt.Errorf("volume: parse %q: %w", s, err)
	}
	if -d.Exponent() > MaxScale || d.NumDigits()+int(d.Exponent()) > MaxIntegerDigits {
		return ZeroVolume(), fmt.Errorf("volume: parse %q: %w", s, ErrOutOfRange)
	}
	return Volume{ml: d}, nil
}

// Decimal returns the underlying amount in milliliters.
func (v Volume) Decimal() decimal.Decimal { return v.ml }

// Float returns the amount as a float64, for display and metrics only.
func (v Volume) Float() float64 {
	f, _ := v.ml.Float64()
	return f
}

// Add adds two volumes.
func (v Volume) Add(other Volume) Volume { return Volume{ml: v.ml.Add(other.ml)} }

// Subtract subtracts another volume.
func (v Volume) Subtract(other Volume) Volume { return Volume{ml: v.ml.Sub(other.ml)} }

// ClampZero returns v, or zero when v is negative.
func (v Volume) ClampZero() Volume {
	if v.ml.IsNegative() {
		return ZeroVolume()
	}
	return v
}

// Portions returns how many whole portions of size fit into v.
// It returns 0 when size is not positive or v is not positive.
func (v Volume) Portions(size Volume) int64 {
	if !size.ml.IsPositive() || !v.ml.IsPositive() {
		return 0
	}
	return v.ml.Div(size.ml).Floor().IntPart()
}

// IsZero reports whether the volume is zero.
func (v Volume) IsZero() bool { return v.ml.IsZero() }

// IsPositive reports whether the volume is greater than zero.
func (v Volume) IsPositive() bool { return v.ml.IsPositive() }

// IsNegative reports whether the volume is less than zero.
func (v Volume) IsNegative() bool { return v.ml.IsNegative() }

// Equal reports whether both volumes hold the same amount ("0.10" equals "0.1").
func (v Volume) Equal(other Volume) bool { return v.ml.Equal(other.ml) }

// LessThan reports whether v < other.
func (v Volume) LessThan(other Volume) bool { return v.ml.LessThan(other.ml) }

// GreaterThan reports whether v > other.
func (v Volume) GreaterThan(other Volume) bool { return v.ml.GreaterThan(other.ml) }

// AtLeast reports whether v >= other.
func (v Volume) AtLeast(other Volume) bool { return v.ml.GreaterThanOrEqual(other.ml) }

// FormatMl returns the amount with two decimal places ("10.00").
func (v Volume) FormatMl() string { return v.ml.StringFixed(2) }

// String returns a display form such as "10.00 ml".
func (v Volume) String() string { return v.FormatMl() + " ml" }

// MarshalJSON implements json.Marshaler.
func (v Volume) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Ml      string `json:"ml"`
		Display string `json:"display"`
	}{
		Ml:      v.ml.String(),
		Display: v.String(),
	})
}

// UnmarshalJSON accepts either the MarshalJSON object form, a JSON number
// or a numeric string.
func (v *Volume) UnmarshalJSON(data []byte) error {
	var obj struct {
		Ml string `json:"ml"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Ml != "" {
		parsed, err := ParseVolume(obj.Ml)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}

	raw := string(data)
	if raw == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		raw = str
	}
	parsed, err := ParseVolume(raw)
	if err != nil {
		return fmt.Errorf("volume: unmarshal %s: %w", data, err)
	}
	*v = parsed
	return nil
}

// SumVolumes adds all values.
func SumVolumes(values ...Volume) Volume {
	total := ZeroVolume()
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
