package ledger

import (
	"testing"
	"time"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
)

// Wednesday 2025-03-12; its week runs Monday 03-10 through Sunday 03-16.
var wednesday = time.Date(2025, 3, 12, 14, 0, 0, 0, time.Local)

func TestWeekWindow(t *testing.T) {
	w := WeekWindow(wednesday)
	if w.Days[0] != "2025-03-10" {
		t.Errorf("monday = %s, want 2025-03-10", w.Days[0])
	}
	if w.Days[6] != "2025-03-16" {
		t.Errorf("sunday = %s, want 2025-03-16", w.Days[6])
	}
}

func TestWeekWindow_SundayAnchorsBackToMonday(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 9, 0, 0, 0, time.Local)
	w := WeekWindow(sunday)
	if w.Days[0] != "2025-03-10" || w.Days[6] != "2025-03-16" {
		t.Errorf("window = %v, want 03-10..03-16", w.Days)
	}
}

func TestSum_ExcludesOtherWeeks(t *testing.T) {
	l := domain.WeeklyLedger{
		"2025-03-10": {NetCash: 500000, Duration: 5},
		"2025-03-12": {NetCash: 600000, Duration: 5},
		"2025-03-03": {NetCash: 9999999, Duration: 8}, // previous week
	}

	sum, ok := Sum(l, "netCash", wednesday)
	if !ok {
		t.Fatal("Sum reported no data")
	}
	if sum != 1100000 {
		t.Errorf("sum = %v, want 1100000", sum)
	}
	if got := SumDisplay(l, "netCash", wednesday); got != "110.0w" {
		t.Errorf("SumDisplay = %q, want 110.0w", got)
	}
}

func TestSum_EmptyWindow(t *testing.T) {
	l := domain.WeeklyLedger{"2025-03-03": {NetCash: 100}}
	if _, ok := Sum(l, "netCash", wednesday); ok {
		t.Error("Sum found data outside the window")
	}
	if got := SumDisplay(l, "netCash", wednesday); got != "-" {
		t.Errorf("SumDisplay = %q, want -", got)
	}
}

func TestHourlyTotal_WeightsByHours(t *testing.T) {
	l := domain.WeeklyLedger{
		"2025-03-10": {NetCash: 500000, Duration: 5},
		"2025-03-11": {NetCash: 100000, Duration: 1},
	}

	v, ok := HourlyTotal(l, "netCash", wednesday)
	if !ok {
		t.Fatal("HourlyTotal reported no data")
	}
	// floor(600000 / 6) — not the average of the daily rates.
	if v != 100000 {
		t.Errorf("hourly total = %v, want 100000", v)
	}
}

func TestHourlyTotal_ZeroDuration(t *testing.T) {
	l := domain.WeeklyLedger{"2025-03-10": {NetCash: 500000, Duration: 0}}
	v, ok := HourlyTotal(l, "netCash", wednesday)
	if !ok || v != 0 {
		t.Errorf("hourly total = %v,%v, want 0,true", v, ok)
	}
}

func TestValue(t *testing.T) {
	l := domain.WeeklyLedger{"2025-03-12": {Duration: 5}}
	if got := Value(l, "2025-03-12", "duration", "h"); got != "5h" {
		t.Errorf("Value = %q, want 5h", got)
	}
	if got := Value(l, "2025-03-13", "duration", "h"); got != "-" {
		t.Errorf("Value for absent day = %q, want -", got)
	}
	if got := Value(l, "2025-03-12", "nonsense", ""); got != "-" {
		t.Errorf("Value for unknown field = %q, want -", got)
	}
}

func TestBuildReport(t *testing.T) {
	l := domain.WeeklyLedger{
		"2025-03-10": {
			InitCash: 1000000, FinalCash: 1500000, NetCash: 500000,
			NetExp: 20000000, Duration: 5, HourlyCash: 100000,
		},
	}

	rep := BuildReport(l, wednesday)

	if len(rep.Days) != 7 {
		t.Fatalf("days = %d, want 7", len(rep.Days))
	}
	if rep.Days[0].Name != "周一" || rep.Days[0].Display != "03.10" {
		t.Errorf("monday header = %+v", rep.Days[0])
	}
	if len(rep.Rows) != 11 {
		t.Fatalf("rows = %d, want 11", len(rep.Rows))
	}

	rows := map[string]ReportRow{}
	for _, r := range rep.Rows {
		rows[r.Field] = r
	}

	if got := rows["netCash"].Cells[0]; got != "50.0w" {
		t.Errorf("netCash monday = %q, want 50.0w", got)
	}
	if got := rows["netCash"].Cells[2]; got != "-" {
		t.Errorf("netCash wednesday = %q, want -", got)
	}
	if got := rows["netCash"].Total; got != "50.0w" {
		t.Errorf("netCash total = %q, want 50.0w", got)
	}
	if got := rows["duration"].Total; got != "5h" {
		t.Errorf("duration total = %q, want 5h", got)
	}
	if got := rows["hourlyCash"].Total; got != "10.0w" {
		t.Errorf("hourlyCash total = %q, want 10.0w", got)
	}
	if got := rows["initCash"].Total; got != "-" {
		t.Errorf("initCash total = %q, want -", got)
	}
}
