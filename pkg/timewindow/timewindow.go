// Package timewindow holds calendar-day arithmetic pinned to one business timezone.
//
// Every component that reasons about "which day" a timestamp belongs to goes
// through a Window so that day boundaries never depend on the host timezone.
package timewindow

import (
	"fmt"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo
)

// DefaultZone is the business timezone used when none is configured.
const DefaultZone = "Asia/Kolkata"

// Window performs day arithmetic in a fixed location.
type Window struct {
	loc *time.Location
}

// New returns a Window for loc. A nil location falls back to UTC.
func New(loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	return Window{loc: loc}
}

// Load resolves an IANA zone name into a Window.
func Load(zone string) (Window, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Window{}, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	return New(loc), nil
}

// Location returns the business location.
func (w Window) Location() *time.Location {
	if w.loc == nil {
		return time.UTC
	}
	return w.loc
}

// In converts t into the business location.
func (w Window) In(t time.Time) time.Time {
	return t.In(w.Location())
}

// StartOfDay returns midnight of the business day containing t.
func (w Window) StartOfDay(t time.Time) time.Time {
	local := w.In(t)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.Location())
}

// EndOfDay returns the last microsecond of the business day containing t.
// Microsecond precision keeps the boundary stable in stores that truncate
// nanoseconds.
func (w Window) EndOfDay(t time.Time) time.Time {
	return w.AddDays(w.StartOfDay(t), 1).Add(-time.Microsecond)
}

// DayRange returns the inclusive [start, end] bounds of the business day containing t.
func (w Window) DayRange(t time.Time) (time.Time, time.Time) {
	return w.StartOfDay(t), w.EndOfDay(t)
}

// AddDays moves t by n calendar days, keeping the wall clock time across DST changes.
func (w Window) AddDays(t time.Time, n int) time.Time {
	return w.In(t).AddDate(0, 0, n)
}

// AddMonths moves t by n calendar months. The day of month is clamped to the
// last day of the target month, so Jan 31 + 1 month is Feb 28/29 rather than
// rolling into March.
func (w Window) AddMonths(t time.Time, n int) time.Time {
	local := w.In(t)
	y, m, d := local.Date()
	first := time.Date(y, m+time.Month(n), 1, local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), w.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// Today returns the start of the business day containing now.
func (w Window) Today(now time.Time) time.Time {
	return w.StartOfDay(now)
}

// DayKey formats the business day of t as YYYYMMDD.
func (w Window) DayKey(t time.Time) string {
	return w.In(t).Format("20060102")
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
