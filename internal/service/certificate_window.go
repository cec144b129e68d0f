package service

import "time"

// Period evaluation window of a certification run.
// Start and End are calendar days (midnight in the run's location), both inclusive.
type Period struct {
	Start time.Time
	End   time.Time
}

// PreviousMonthPeriod returns the first and last day of the month preceding ref's month,
// in ref's location.
func PreviousMonthPeriod(ref time.Time) Period {
	firstOfMonth := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return Period{
		Start: firstOfMonth.AddDate(0, -1, 0),
		End:   firstOfMonth.AddDate(0, 0, -1),
	}
}

// CertificateExpiration returns the last day of the month lifetimeMonths-1 months
// after attribution.
func CertificateExpiration(attribution time.Time, lifetimeMonths int) time.Time {
	firstOfMonth := time.Date(attribution.Year(), attribution.Month(), 1, 0, 0, 0, 0, attribution.Location())
	return firstOfMonth.AddDate(0, lifetimeMonths, -1)
}

// truncateDay midnight of t's calendar day in loc
func truncateDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// civilDate t's calendar date as UTC midnight, the form DATE columns round-trip in
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// From first instant of the window
func (p Period) From() time.Time { return p.Start }

// Until first instant after the window
func (p Period) Until() time.Time { return p.End.AddDate(0, 0, 1) }

// Contains reports whether t falls inside the window
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From()) && t.Before(p.Until())
}

// Days number of calendar days in the window
func (p Period) Days() int {
	n := 0
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// touchedDays calendar days of the window intersected by [start, end).
// An ongoing interval (end nil) touches its start day only.
func (p Period) touchedDays(start time.Time, end *time.Time) []time.Time {
	loc := p.Start.Location()
	first := truncateDay(start, loc)
	last := first
	if end != nil && end.After(start) {
		// an interval ending exactly at midnight does not touch the next day
		last = truncateDay(end.Add(-time.Nanosecond), loc)
	}
	if first.Before(p.Start) {
		first = p.Start
	}
	if last.After(p.End) {
		last = p.End
	}
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ceilPercent ceil(pct% of total) in integer arithmetic
func ceilPercent(total, pct int) int {
	if total <= 0 || pct <= 0 {
		return 0
	}
	return (total*pct + 99) / 100
}
