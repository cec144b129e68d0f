package model

import "time"

// Dismissable records soft cancellation by a user or an admin.
// Dismissed rows stay in the table and are ignored by every computation.
type Dismissable struct {
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`
}

// IsDismissed reports whether the row was cancelled
func (d Dismissable) IsDismissed() bool {
	return d.DismissedAt != nil
}

// civilDay t's calendar date as UTC midnight, so DATE columns and zoned instants compare by day
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
