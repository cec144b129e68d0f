package dto

import "time"

// DateLayout calendar dates on the wire: "2023-03-01"
const DateLayout = "2006-01-02"

// ── shared request parameters ──

// DateQuery optional ?date= parameter, defaults to today
type DateQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// AttributionDateQuery mandatory ?attribution_date= parameter
type AttributionDateQuery struct {
	AttributionDate string `form:"attribution_date" binding:"required,datetime=2006-01-02"`
}

// ParseDate parses a DateLayout value as a civil date in loc
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, loc)
}

// FormatDate formats a civil date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDatePtr nil stays nil
func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatDate(*t)
	return &s
}
