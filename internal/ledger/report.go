package ledger

import (
	"time"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
)

// ReportDay is one column of the weekly table.
type ReportDay struct {
	Name    string `json:"name"`    // 周一 … 周日
	Date    string `json:"date"`    // YYYY-MM-DD
	Display string `json:"display"` // MM.DD
}

// ReportRow is one field row: seven formatted day cells plus a weekly total.
type ReportRow struct {
	Field string   `json:"field"`
	Label string   `json:"label"`
	Cells []string `json:"cells"`
	Total string   `json:"total"`
}

// Report is the rendered weekly table for one account.
type Report struct {
	Days []ReportDay `json:"days"`
	Rows []ReportRow `json:"rows"`
}

var dayNames = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// reportRows defines the table layout: field, label, unit, and how the
// weekly total is produced.
var reportRows = []struct {
	field string
	label string
	unit  string
	total func(domain.WeeklyLedger, time.Time) string
}{
	{"initCash", "初始现金", "", nil},
	{"finalCash", "最终现金", "", nil},
	{"netCash", "净得现金", "", func(l domain.WeeklyLedger, now time.Time) string { return SumDisplay(l, "netCash", now) }},
	{"initReserve", "初始储备", "", nil},
	{"finalReserve", "最终储备", "", nil},
	{"netReserve", "净得储备", "", func(l domain.WeeklyLedger, now time.Time) string { return SumDisplay(l, "netReserve", now) }},
	{"netExp", "净得经验", "", func(l domain.WeeklyLedger, now time.Time) string { return SumDisplay(l, "netExp", now) }},
	{"duration", "挂机时长", "h", func(l domain.WeeklyLedger, now time.Time) string {
		s := SumDisplay(l, "duration", now)
		if s == "-" {
			return s
		}
		return s + "h"
	}},
	{"hourlyCash", "时薪(现金)", "", func(l domain.WeeklyLedger, now time.Time) string { return HourlyTotalDisplay(l, "netCash", now) }},
	{"hourlyReserve", "时薪(储备)", "", func(l domain.WeeklyLedger, now time.Time) string { return HourlyTotalDisplay(l, "netReserve", now) }},
	{"hourlyExp", "时薪(经验)", "", func(l domain.WeeklyLedger, now time.Time) string { return HourlyTotalDisplay(l, "netExp", now) }},
}

// BuildReport renders the weekly table for the week containing now.
func BuildReport(l domain.WeeklyLedger, now time.Time) Report {
	w := WeekWindow(now)

	days := make([]ReportDay, 7)
	for i, key := range w.Days {
		t, _ := time.Parse(DateKeyLayout, key)
		days[i] = ReportDay{
			Name:    dayNames[i],
			Date:    key,
			Display: t.Format("01.02"),
		}
	}

	rows := make([]ReportRow, 0, len(reportRows))
	for _, def := range reportRows {
		cells := make([]string, 7)
		for i, key := range w.Days {
			cells[i] = Value(l, key, def.field, def.unit)
		}
		total := "-"
		if def.total != nil {
			total = def.total(l, now)
		}
		rows = append(rows, ReportRow{Field: def.field, Label: def.label, Cells: cells, Total: total})
	}

	return Report{Days: days, Rows: rows}
}
