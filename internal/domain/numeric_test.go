package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNumeric_Float(t *testing.T) {
	cases := []struct {
		name string
		n    Numeric
		want float64
	}{
		{"empty is zero", "", 0},
		{"integer", "1000000", 1000000},
		{"decimal", "3.5", 3.5},
		{"negative", "-42", -42},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.n.Float(); got != c.want {
				t.Errorf("Float() = %v, want %v", got, c.want)
			}
		})
	}

	if f := Numeric("abc").Float(); !math.IsNaN(f) {
		t.Errorf("Float() on garbage = %v, want NaN", f)
	}
}

func TestNumeric_JSONRoundTrip(t *testing.T) {
	var s Snapshot
	in := []byte(`{"time":"10:00:00","cash":1000000,"reserve":"200000","exp":null}`)
	if err := json.Unmarshal(in, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Cash != "1000000" {
		t.Errorf("cash = %q, want 1000000", s.Cash)
	}
	if s.Reserve != "200000" {
		t.Errorf("reserve = %q, want 200000", s.Reserve)
	}
	if !s.Exp.IsEmpty() {
		t.Errorf("exp = %q, want empty", s.Exp)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"time":"10:00:00","cash":1000000,"reserve":200000,"exp":""}`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}

func TestMetric_NaNSurvivesRoundTrip(t *testing.T) {
	rec := DailyRecord{NetCash: Metric(math.NaN()), Duration: 4}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back DailyRecord
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsNaN(float64(back.NetCash)) {
		t.Errorf("net cash = %v, want NaN", back.NetCash)
	}
	if float64(back.Duration) != 4 {
		t.Errorf("duration = %v, want 4", back.Duration)
	}
}

func TestRegistry_Find(t *testing.T) {
	r := Registry{Accounts: []Account{{ID: "a1", Name: "账号_01"}}}
	if _, ok := r.Find("a1"); !ok {
		t.Error("Find missed existing account")
	}
	if _, ok := r.Find("nope"); ok {
		t.Error("Find matched missing account")
	}
}

func TestAccountState_CloneIsIndependent(t *testing.T) {
	s := AccountState{WeeklyData: WeeklyLedger{"2025-03-10": {NetCash: 1}}}
	c := s.Clone()
	c.WeeklyData["2025-03-11"] = DailyRecord{NetCash: 2}
	if _, ok := s.WeeklyData["2025-03-11"]; ok {
		t.Error("Clone shares the ledger map")
	}
}
