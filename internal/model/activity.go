package model

import "time"

// ActivityType declared nature of an activity
type ActivityType string

const (
	ActivityDrive    ActivityType = "drive"
	ActivityWork     ActivityType = "work"
	ActivitySupport  ActivityType = "support"
	ActivityTransfer ActivityType = "transfer"
	ActivityOff      ActivityType = "off"
)

// Activity activities table
type Activity struct {
	ID           int64        `gorm:"primaryKey"                         json:"id"`
	MissionID    int64        `gorm:"not null"                           json:"mission_id"`
	UserID       int64        `gorm:"not null"                           json:"user_id"`
	SubmitterID  int64        `gorm:"not null"                           json:"submitter_id"`
	Type         ActivityType `gorm:"type:varchar(20);not null"          json:"type"`
	StartTime    time.Time    `gorm:"not null"                           json:"start_time"`
	EndTime      *time.Time   `json:"end_time,omitempty"` // nil while ongoing
	CreationTime time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"creation_time"`
	Dismissable

	Mission  *Mission          `gorm:"foreignKey:MissionID"  json:"mission,omitempty"`
	Versions []ActivityVersion `gorm:"foreignKey:ActivityID" json:"versions,omitempty"`
}

func (Activity) TableName() string { return "activities" }

// ActivityVersion activity_versions table.
// Version 1 is the original log, later versions are revisions.
type ActivityVersion struct {
	ID            int64      `gorm:"primaryKey"                         json:"id"`
	ActivityID    int64      `gorm:"not null"                           json:"activity_id"`
	VersionNumber int        `gorm:"not null"                           json:"version_number"`
	SubmitterID   int64      `gorm:"not null"                           json:"submitter_id"`
	StartTime     time.Time  `gorm:"not null"                           json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	ReceptionTime time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"reception_time"`
}

func (ActivityVersion) TableName() string { return "activity_versions" }
