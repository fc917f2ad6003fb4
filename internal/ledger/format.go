package ledger

import (
	"math"
	"strconv"
)

// Display scales used across the UI: 1w = 10,000 and 1亿 = 100,000,000.
const (
	myriad         = 10_000
	hundredMillion = 100_000_000
)

// Format renders a numeric value for display. Values above one hundred
// million are shown in 亿 with two decimals, values above ten thousand in w
// with one decimal, zero as "0", and anything else raw with the caller's
// unit suffix. NaN markers render verbatim.
func Format(v float64, unit string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	if v > hundredMillion {
		return strconv.FormatFloat(v/hundredMillion, 'f', 2, 64) + "亿"
	}
	if v > myriad {
		return strconv.FormatFloat(v/myriad, 'f', 1, 64) + "w"
	}
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + unit
}

// FormatString coerces a string-typed value before formatting. Empty values
// render as "-"; non-numeric strings pass through unchanged with the unit
// suffix appended.
func FormatString(s, unit string) string {
	if s == "" {
		return "-"
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s + unit
	}
	return Format(f, unit)
}
