package analytics

import (
	"fmt"
	"time"
)

// =============================================================================
// DAY - A local calendar date
// =============================================================================

// Day is a calendar date without a time of day. Sales are bucketed by the
// Day of their creation time in the reporting location, never by a rolling
// 24h window.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Dom: d}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Start returns midnight of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, loc)
}

// AddDays returns the day n days later (or earlier if n < 0).
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.Year, d.Month, d.Dom+n, 0, 0, 0, 0, time.UTC))
}

func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Dom < o.Dom
}

func (d Day) After(o Day) bool { return o.Before(d) }

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Dom)
}

// =============================================================================
// PERIOD - Inclusive range of days
// =============================================================================

// Period is the closed range [Start, End] of calendar days.
type Period struct {
	Start Day
	End   Day
}

// LastDays returns the n days ending on end, inclusive.
func LastDays(end Day, n int) Period {
	if n < 1 {
		n = 1
	}
	return Period{Start: end.AddDays(-(n - 1)), End: end}
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Day) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns every day of the period in chronological order.
func (p Period) Days() []Day {
	var days []Day
	for d := p.Start; !d.After(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Bounds returns the first and last instant of the period in loc, suitable
// for an inclusive time filter.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	return p.Start.Start(loc), p.End.AddDays(1).Start(loc).Add(-time.Nanosecond)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
