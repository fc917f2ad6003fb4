package ledger

import (
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		name string
		v    float64
		unit string
		want string
	}{
		{"zero", 0, "", "0"},
		{"zero ignores unit", 0, "h", "0"},
		{"small raw", 123, "", "123"},
		{"small with unit", 3.5, "h", "3.5h"},
		{"myriad boundary stays raw", 10000, "", "10000"},
		{"above myriad", 15000, "", "1.5w"},
		{"above myriad keeps one decimal", 1234567, "", "123.5w"},
		{"hundred million boundary stays w", 100000000, "", "10000.0w"},
		{"above hundred million", 150000000, "", "1.50亿"},
		{"negative stays raw", -15000, "", "-15000"},
		{"nan", math.NaN(), "", "NaN"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Format(c.v, c.unit); got != c.want {
				t.Errorf("Format(%v, %q) = %q, want %q", c.v, c.unit, got, c.want)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	cases := []struct {
		name string
		s    string
		unit string
		want string
	}{
		{"empty", "", "h", "-"},
		{"numeric", "15000", "", "1.5w"},
		{"non-numeric passthrough", "abc", "h", "abch"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := FormatString(c.s, c.unit); got != c.want {
				t.Errorf("FormatString(%q, %q) = %q, want %q", c.s, c.unit, got, c.want)
			}
		})
	}
}
