package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// ErrUnknownCheckType regulation check type without a payload variant
var ErrUnknownCheckType = errors.New("unknown regulation check type")

// AlertExtra rule-specific breach detail carried by a regulatory alert.
// One implementation per regulation check type.
type AlertExtra interface {
	CheckType() model.RegulationCheckType
	// Overrun how far the breach goes past the legal limit.
	// ok is false when the payload lacks a key the rule needs.
	Overrun() (overrun time.Duration, ok bool)
}

// DailyRestExtra minimumDailyRest: longest rest of the period against the required hours
type DailyRestExtra struct {
	MinDailyBreakInHours          *float64 `json:"min_daily_break_in_hours"`
	BreachPeriodMaxBreakInSeconds *float64 `json:"breach_period_max_break_in_seconds"`
}

func (DailyRestExtra) CheckType() model.RegulationCheckType { return model.CheckMinimumDailyRest }

func (e DailyRestExtra) Overrun() (time.Duration, bool) {
	if e.MinDailyBreakInHours == nil || e.BreachPeriodMaxBreakInSeconds == nil {
		return 0, false
	}
	return hours(*e.MinDailyBreakInHours) - seconds(*e.BreachPeriodMaxBreakInSeconds), true
}

// WorkDayExtra maximumWorkDayTime: work range of the day against the allowed hours
type WorkDayExtra struct {
	WorkRangeInSeconds  *float64 `json:"work_range_in_seconds"`
	MaxWorkRangeInHours *float64 `json:"max_work_range_in_hours"`
}

func (WorkDayExtra) CheckType() model.RegulationCheckType { return model.CheckMaximumWorkDayTime }

func (e WorkDayExtra) Overrun() (time.Duration, bool) {
	if e.WorkRangeInSeconds == nil || e.MaxWorkRangeInHours == nil {
		return 0, false
	}
	return seconds(*e.WorkRangeInSeconds) - hours(*e.MaxWorkRangeInHours), true
}

// BreakExtra minimumWorkDayBreak: total break taken against the required minutes
type BreakExtra struct {
	MinBreakTimeInMinutes   *float64 `json:"min_break_time_in_minutes"`
	TotalBreakTimeInSeconds *float64 `json:"total_break_time_in_seconds"`
}

func (BreakExtra) CheckType() model.RegulationCheckType { return model.CheckMinimumWorkDayBreak }

func (e BreakExtra) Overrun() (time.Duration, bool) {
	if e.MinBreakTimeInMinutes == nil || e.TotalBreakTimeInSeconds == nil {
		return 0, false
	}
	return minutes(*e.MinBreakTimeInMinutes) - seconds(*e.TotalBreakTimeInSeconds), true
}

// UninterruptedWorkExtra maximumUninterruptedWorkTime: longest stretch against the allowed hours
type UninterruptedWorkExtra struct {
	LongestUninterruptedWorkInSeconds *float64 `json:"longest_uninterrupted_work_in_seconds"`
	MaxUninterruptedWorkInHours       *float64 `json:"max_uninterrupted_work_in_hours"`
}

func (UninterruptedWorkExtra) CheckType() model.RegulationCheckType {
	return model.CheckMaximumUninterruptedWorkTime
}

func (e UninterruptedWorkExtra) Overrun() (time.Duration, bool) {
	if e.LongestUninterruptedWorkInSeconds == nil || e.MaxUninterruptedWorkInHours == nil {
		return 0, false
	}
	return seconds(*e.LongestUninterruptedWorkInSeconds) - hours(*e.MaxUninterruptedWorkInHours), true
}

// CalendarWeekExtra maximumWorkInCalendarWeek: weekly work against the allowed hours
type CalendarWeekExtra struct {
	WorkDurationInSeconds        *float64 `json:"work_duration_in_seconds"`
	MaxWorkInCalendarWeekInHours *float64 `json:"max_work_in_calendar_week_in_hours"`
}

func (CalendarWeekExtra) CheckType() model.RegulationCheckType {
	return model.CheckMaximumWorkInCalendarWeek
}

func (e CalendarWeekExtra) Overrun() (time.Duration, bool) {
	if e.WorkDurationInSeconds == nil || e.MaxWorkInCalendarWeekInHours == nil {
		return 0, false
	}
	return seconds(*e.WorkDurationInSeconds) - hours(*e.MaxWorkInCalendarWeekInHours), true
}

// WorkedDaysInWeekExtra maximumWorkedDaysInWeek: any occurrence is a breach
type WorkedDaysInWeekExtra struct {
	TooManyDays       *bool    `json:"too_many_days,omitempty"`
	RestDurationInSec *float64 `json:"rest_duration_s,omitempty"`
}

func (WorkedDaysInWeekExtra) CheckType() model.RegulationCheckType {
	return model.CheckMaximumWorkedDaysInWeek
}

// Overrun is unbounded: no tolerance applies to weekly rest.
func (WorkedDaysInWeekExtra) Overrun() (time.Duration, bool) {
	return time.Duration(math.MaxInt64), true
}

// ParseAlertExtra decodes raw into the variant matching checkType.
// An empty or null payload yields a variant with every key missing.
func ParseAlertExtra(checkType model.RegulationCheckType, raw []byte) (AlertExtra, error) {
	var extra AlertExtra
	switch checkType {
	case model.CheckMinimumDailyRest:
		var v DailyRestExtra
		if err := decodeExtra(raw, &v); err != nil {
			return nil, err
		}
		extra = v
	case model.CheckMaximumWorkDayTime:
		var v WorkDayExtra
		if err := decodeExtra(raw, &v); err != nil {
			return nil, err
		}
		extra = v
	case model.CheckMinimumWorkDayBreak:
		var v BreakExtra
		if err := decodeExtra(raw, &v); err != nil {
			return nil, err
		}
		extra = v
	case model.CheckMaximumUninterruptedWorkTime:
		var v UninterruptedWorkExtra
		if err := decodeExtra(raw, &v); err != nil {
			return nil, err
		}
		extra = v
	case model.CheckMaximumWorkInCalendarWeek:
		var v CalendarWeekExtra
		if err := decodeExtra(raw, &v); err != nil {
			return nil, err
		}
		extra = v
	case model.CheckMaximumWorkedDaysInWeek:
		var v WorkedDaysInWeekExtra
		if err := decodeExtra(raw, &v); err != nil {
			return nil, err
		}
		extra = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCheckType, checkType)
	}
	return extra, nil
}

func decodeExtra(raw []byte, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode alert extra: %w", err)
	}
	return nil
}

// AlertTolerance margin allowed past the limit before an alert of checkType is a real breach
func AlertTolerance(cfg *config.ComplianceThresholds, checkType model.RegulationCheckType) time.Duration {
	var mins int
	switch checkType {
	case model.CheckMinimumDailyRest:
		mins = cfg.DailyRestToleranceMinutes
	case model.CheckMaximumWorkDayTime:
		mins = cfg.WorkDayToleranceMinutes
	case model.CheckMinimumWorkDayBreak:
		mins = cfg.BreakToleranceMinutes
	case model.CheckMaximumUninterruptedWorkTime:
		mins = cfg.UninterruptedToleranceMinutes
	case model.CheckMaximumWorkInCalendarWeek:
		mins = cfg.CalendarWeekToleranceMinutes
	}
	return time.Duration(mins) * time.Minute
}

// IsRealBreach reports whether extra goes strictly past tolerance.
// A payload missing a required key never counts.
func IsRealBreach(extra AlertExtra, tolerance time.Duration) bool {
	overrun, ok := extra.Overrun()
	return ok && overrun > tolerance
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }
func minutes(v float64) time.Duration { return time.Duration(v * float64(time.Minute)) }
func hours(v float64) time.Duration   { return time.Duration(v * float64(time.Hour)) }
