package model

import (
	"time"

	"gorm.io/datatypes"
)

// RegulationCheckType labor-law rule identifier
type RegulationCheckType string

const (
	CheckMinimumDailyRest             RegulationCheckType = "minimumDailyRest"
	CheckMaximumWorkDayTime           RegulationCheckType = "maximumWorkDayTime"
	CheckMinimumWorkDayBreak          RegulationCheckType = "minimumWorkDayBreak"
	CheckMaximumUninterruptedWorkTime RegulationCheckType = "maximumUninterruptedWorkTime"
	CheckMaximumWorkedDaysInWeek      RegulationCheckType = "maximumWorkedDaysInWeek"
	CheckMaximumWorkInCalendarWeek    RegulationCheckType = "maximumWorkInCalendarWeek"
)

// AllRegulationCheckTypes in display order
var AllRegulationCheckTypes = []RegulationCheckType{
	CheckMinimumDailyRest,
	CheckMaximumWorkDayTime,
	CheckMinimumWorkDayBreak,
	CheckMaximumUninterruptedWorkTime,
	CheckMaximumWorkedDaysInWeek,
	CheckMaximumWorkInCalendarWeek,
}

// Alert submitter types; certification only reads alerts computed from the employee's own log
const (
	SubmitterTypeEmployee = "employee"
	SubmitterTypeAdmin    = "admin"
)

// RegulationCheck regulation_checks table
type RegulationCheck struct {
	ID    int64               `gorm:"primaryKey"                json:"id"`
	Type  RegulationCheckType `gorm:"type:varchar(64);not null" json:"type"`
	Label string              `gorm:"type:varchar(255);not null" json:"label"`
}

func (RegulationCheck) TableName() string { return "regulation_checks" }

// RegulatoryAlert regulatory_alerts table: a precomputed rule breach for a user on a day.
// Extra carries the rule-specific breach detail.
type RegulatoryAlert struct {
	ID                int64          `gorm:"primaryKey"                                   json:"id"`
	UserID            int64          `gorm:"not null"                                     json:"user_id"`
	Day               time.Time      `gorm:"type:date;not null"                           json:"day"`
	RegulationCheckID int64          `gorm:"not null"                                     json:"regulation_check_id"`
	Extra             datatypes.JSON `gorm:"type:jsonb"                                   json:"extra,omitempty"`
	SubmitterType     string         `gorm:"type:varchar(20);not null;default:'employee'" json:"submitter_type"`
	CreationTime      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"           json:"creation_time"`

	RegulationCheck *RegulationCheck `gorm:"foreignKey:RegulationCheckID" json:"regulation_check,omitempty"`
}

func (RegulatoryAlert) TableName() string { return "regulatory_alerts" }
