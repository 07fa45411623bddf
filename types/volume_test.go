package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseVolume(t *testing.T) {
	tests := []struct {
		in      string
		display string
		wantErr bool
	}{
		{"0.11", "0.11 ml", false},
		{"10", "10.00 ml", false},
		{" 1.5 ", "1.50 ml", false},
		{"-0.2", "-0.20 ml", false},
		{"", "", true},
		{"   ", "", true},
		{"abc", "", true},
		{"1,5", "", true},
		{"1e-3000000", "", true},
		{"1e3000000", "", true},
		{"0.0000000000001", "", true},
		{"0.000000000001", "0.00 ml", false},
		{"1e2", "100.00 ml", false},
		{"1000000000000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVolume(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				if !v.IsZero() {
					t.Errorf("failed parse should yield zero, got %v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.String() != tt.display {
				t.Errorf("display: got %s, want %s", v.String(), tt.display)
			}
		})
	}
}

func TestParseVolumeOutOfRange(t *testing.T) {
	_, err := ParseVolume("1e-100000")
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}
}

func TestVolumeArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Volume
		expected Volume
	}{
		{"Add", func() Volume { return Ml("0.11").Add(Ml("0.22")) }, Ml("0.33")},
		{"Subtract", func() Volume { return Ml("10").Subtract(Ml("0.11")) }, Ml("9.89")},
		{"ClampZero negative", func() Volume { return Ml("1").Subtract(Ml("2")).ClampZero() }, ZeroVolume()},
		{"ClampZero positive", func() Volume { return Ml("0.5").ClampZero() }, Ml("0.5")},
		{"Sum", func() Volume { return SumVolumes(Ml("0.1"), Ml("0.2"), Ml("0.3")) }, Ml("0.6")},
		{"Sum empty", func() Volume { return SumVolumes() }, ZeroVolume()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestVolumePortions(t *testing.T) {
	tests := []struct {
		name  string
		v     Volume
		size  Volume
		count int64
	}{
		{"full vial", Ml("10"), Ml("0.11"), 90},
		{"exact multiple", Ml("0.22"), Ml("0.11"), 2},
		{"less than one", Ml("0.05"), Ml("0.11"), 0},
		{"zero volume", ZeroVolume(), Ml("0.11"), 0},
		{"zero size", Ml("10"), ZeroVolume(), 0},
		{"negative volume", Ml("-1"), Ml("0.11"), 0},
		{"after many shots", Ml("0.99"), Ml("0.11"), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Portions(tt.size); got != tt.count {
				t.Errorf("Portions: got %d, want %d", got, tt.count)
			}
		})
	}
}

func TestVolumeComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Volume
		less    bool
		greater bool
		atLeast bool
		equal   bool
	}{
		{"Equal", Ml("0.11"), Ml("0.110"), false, false, true, true},
		{"Less", Ml("0.05"), Ml("0.11"), true, false, false, false},
		{"Greater", Ml("10"), Ml("0.11"), false, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.AtLeast(tt.b); got != tt.atLeast {
				t.Errorf("AtLeast: got %v, want %v", got, tt.atLeast)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestVolumeMustPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for malformed literal")
		}
	}()

	_ = Ml("ten")
}

func TestVolumeJSON(t *testing.T) {
	data, err := json.Marshal(Ml("9.89"))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	expected := `{"ml":"9.89","display":"9.89 ml"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	for _, in := range []string{expected, `9.89`, `"9.89"`} {
		var v Volume
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", in, err)
		}
		if !v.Equal(Ml("9.89")) {
			t.Errorf("Unmarshal(%s): got %v", in, v)
		}
	}
}

func TestVolumeJSONOutOfRange(t *testing.T) {
	for _, in := range []string{`1e-3000000`, `"1e-3000000"`, `{"ml":"1e-3000000"}`} {
		var v Volume
		if err := json.Unmarshal([]byte(in), &v); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Unmarshal(%s): got %v, want ErrOutOfRange", in, err)
		}
	}
}

func BenchmarkVolumePortions(b *testing.B) {
	v := Ml("9.89")
	size := Ml("0.11")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v.Portions(size)
	}
}
