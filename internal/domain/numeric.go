package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Numeric is a snapshot field that may hold a number or be empty.
// The remote store and the OCR service both send these fields as either a
// JSON number or a string, and the frontend leaves them as "" until filled.
type Numeric string

// IsEmpty reports whether the field was never filled.
func (n Numeric) IsEmpty() bool { return n == "" }

// Float coerces the field to a float64. An empty field coerces to 0; a
// non-empty value that does not parse coerces to NaN, which propagates
// through downstream arithmetic instead of crashing it.
func (n Numeric) Float() float64 {
	if n == "" {
		return 0
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// IsNumeric reports whether the field holds a parsable number.
func (n Numeric) IsNumeric() bool {
	_, err := strconv.ParseFloat(string(n), 64)
	return err == nil
}

// UnmarshalJSON accepts a JSON number, string or null.
func (n *Numeric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	// Raw number token; keep its literal form.
	*n = Numeric(b)
	return nil
}

// MarshalJSON emits a bare number when the value is numeric, the literal
// string otherwise ("" for empty fields).
func (n Numeric) MarshalJSON() ([]byte, error) {
	if f, err := strconv.ParseFloat(string(n), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

// Metric is a computed numeric field of a daily record. Unlike Numeric it is
// arithmetic-first: NaN is a legal value (it marks arithmetic over an
// unparsable input) and survives a JSON round trip as the string "NaN".
type Metric float64

// Float returns the underlying value.
func (m Metric) Float() float64 { return float64(m) }

// MarshalJSON writes NaN/Inf as the string "NaN" so ledgers holding a
// propagated marker still persist instead of failing to encode.
func (m Metric) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal("NaN")
	}
	return json.Marshal(f)
}

// UnmarshalJSON accepts a JSON number or a string; unparsable strings decode
// to NaN rather than erroring (malformed remote data degrades, never raises).
func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f = math.NaN()
		}
		*m = Metric(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*m = Metric(math.NaN())
		return nil
	}
	*m = Metric(f)
	return nil
}
