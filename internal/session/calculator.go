// Package session derives net gains, session duration and hourly rates from
// a pair of timestamped snapshots.
package session

import (
	"math"
	"time"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
)

// DefaultDuration (hours) is assumed when timestamps are missing, unparsable
// or out of order. A fixed fallback keeps incomplete entries usable.
const DefaultDuration = 4.0

// Calculate turns an init/final snapshot pair into the display result and
// the daily record for now's local calendar date. Both cash fields must be
// filled; nothing is computed otherwise. Unparsable numerics propagate as
// NaN so that bad input stays visible in the record.
func Calculate(init, final domain.Snapshot, now time.Time) (domain.Result, domain.DailyRecord, error) {
	if init.Cash.IsEmpty() || final.Cash.IsEmpty() {
		return domain.Result{}, domain.DailyRecord{}, &domain.ErrMissingInput{}
	}

	iCash, fCash := init.Cash.Float(), final.Cash.Float()
	iReserve, fReserve := init.Reserve.Float(), final.Reserve.Float()
	iExp, fExp := init.Exp.Float(), final.Exp.Float()

	netCash := fCash - iCash
	netReserve := fReserve - iReserve
	netExp := fExp - iExp

	duration := Duration(init.Time, final.Time, now)

	hourly := func(net float64) float64 {
		if duration > 0 {
			return math.Floor(net / duration)
		}
		return 0
	}
	hourlyCash := hourly(netCash)
	hourlyReserve := hourly(netReserve)
	hourlyExp := hourly(netExp)

	result := domain.Result{
		Cash:          domain.Metric(netCash),
		Reserve:       domain.Metric(netReserve),
		Exp:           domain.Metric(netExp),
		Duration:      domain.Metric(duration),
		HourlyCash:    domain.Metric(hourlyCash),
		HourlyReserve: domain.Metric(hourlyReserve),
		HourlyExp:     domain.Metric(hourlyExp),
	}

	record := domain.DailyRecord{
		InitCash:      domain.Metric(iCash),
		FinalCash:     domain.Metric(fCash),
		NetCash:       domain.Metric(netCash),
		InitReserve:   domain.Metric(iReserve),
		FinalReserve:  domain.Metric(fReserve),
		NetReserve:    domain.Metric(netReserve),
		InitExp:       domain.Metric(iExp),
		FinalExp:      domain.Metric(fExp),
		NetExp:        domain.Metric(netExp),
		Duration:      domain.Metric(duration),
		HourlyCash:    domain.Metric(hourlyCash),
		HourlyReserve: domain.Metric(hourlyReserve),
		HourlyExp:     domain.Metric(hourlyExp),
	}

	return result, record, nil
}

// Duration computes the session length in hours, rounded to two decimals.
// The computed difference is used only when both timestamps parse and the
// difference is a finite positive number; everything else falls back to
// DefaultDuration.
func Duration(initTime, finalTime string, now time.Time) float64 {
	t1, ok1 := parseSnapshotTime(initTime, now)
	t2, ok2 := parseSnapshotTime(finalTime, now)
	if !ok1 || !ok2 {
		return DefaultDuration
	}

	h := t2.Sub(t1).Hours()
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return DefaultDuration
	}
	return math.Round(h*100) / 100
}

// parseSnapshotTime accepts RFC3339 or a bare clock time anchored to now's
// date (the frontend records scan times as "15:04:05", assuming the session
// does not cross midnight).
func parseSnapshotTime(s string, now time.Time) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("15:04:05", s); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, now.Location()), true
	}
	return time.Time{}, false
}
