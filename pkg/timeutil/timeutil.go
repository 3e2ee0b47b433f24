// Package timeutil provides clock and calendar helpers for the school day.
//
// A school "day" is a calendar date in the school's reference location
// (Asia/Jakarta by default). Calendar dates are carried as time.Time values
// at 00:00 UTC, which is also how pgx scans a Postgres DATE column, so a date
// read back from storage compares equal to one produced by DateOf.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// JakartaTZ is Western Indonesia Time (UTC+7, no DST).
var JakartaTZ = time.FixedZone("Asia/Jakarta", 7*60*60)

// LoadLocation resolves name, falling back to JakartaTZ when the zone
// database is unavailable or name is empty.
func LoadLocation(name string) *time.Location {
	if name == "" || name == "Asia/Jakarta" {
		if loc, err := time.LoadLocation("Asia/Jakarta"); err == nil {
			return loc
		}
		return JakartaTZ
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return JakartaTZ
	}
	return loc
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock is the injectable time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a settable instant. Safe for concurrent use.
type FixedClock struct {
	mu sync.RWMutex
	t  time.Time
}

// NewFixedClock creates a clock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the frozen instant.
func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR DATES
// ══════════════════════════════════════════════════════════════════════════════

const (
	// FormatDate is the wire format for dates (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatMonth is the wire format for months (YYYY-MM).
	FormatMonth = "2006-01"
	// FormatTime is the clock format used for cutoffs and journal notes (HH:MM).
	FormatTime = "15:04"
)

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(c Clock, loc *time.Location) time.Time {
	return DateOf(c.Now(), loc)
}

// AddDays shifts a calendar date by n days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// SameDate reports whether two calendar dates are the same day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of d's month.
func EndOfMonth(d time.Time) time.Time {
	return StartOfMonth(d).AddDate(0, 1, -1)
}

// DaysBetween returns the whole days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// ParseDate parses YYYY-MM-DD into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(FormatDate, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseMonth parses YYYY-MM into the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.ParseInLocation(FormatMonth, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return t, nil
}

// FormatDateStr formats a calendar date as YYYY-MM-DD.
func FormatDateStr(d time.Time) string {
	return d.Format(FormatDate)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK TIME OF DAY
// ══════════════════════════════════════════════════════════════════════════════

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

// ParseTimeOfDay parses HH:MM.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(FormatTime, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for constants; it panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// ClockOf returns the minute-resolution time of day of t in loc.
// Seconds are dropped, so 06:44:59 is still 06:44.
func ClockOf(t time.Time, loc *time.Location) TimeOfDay {
	local := t.In(loc)
	return TimeOfDay(local.Hour()*60 + local.Minute())
}

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// FormatTimeStr formats t as HH:MM in loc.
func FormatTimeStr(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(FormatTime)
}
