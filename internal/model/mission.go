package model

import "time"

// Mission missions table: a work session grouping activities of one or more users
type Mission struct {
	ID           int64     `gorm:"primaryKey"                         json:"id"`
	CompanyID    int64     `gorm:"not null"                           json:"company_id"`
	Name         string    `gorm:"type:varchar(255)"                  json:"name,omitempty"`
	SubmitterID  int64     `gorm:"not null"                           json:"submitter_id"`
	CreationTime time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"creation_time"`

	Ends        []MissionEnd        `gorm:"foreignKey:MissionID" json:"ends,omitempty"`
	Validations []MissionValidation `gorm:"foreignKey:MissionID" json:"validations,omitempty"`
	Activities  []Activity          `gorm:"foreignKey:MissionID" json:"activities,omitempty"`
}

func (Mission) TableName() string { return "missions" }

// MissionEnd mission_ends table: one per user who stopped working on the mission
type MissionEnd struct {
	ID            int64     `gorm:"primaryKey"                         json:"id"`
	MissionID     int64     `gorm:"not null"                           json:"mission_id"`
	UserID        int64     `gorm:"not null"                           json:"user_id"`
	SubmitterID   int64     `gorm:"not null"                           json:"submitter_id"`
	EndTime       time.Time `gorm:"not null"                           json:"end_time"`
	ReceptionTime time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"reception_time"`
}

func (MissionEnd) TableName() string { return "mission_ends" }

// MissionValidation mission_validations table.
// UserID is nil for an admin validation covering the whole team.
type MissionValidation struct {
	ID            int64     `gorm:"primaryKey"                         json:"id"`
	MissionID     int64     `gorm:"not null"                           json:"mission_id"`
	UserID        *int64    `json:"user_id,omitempty"`
	SubmitterID   int64     `gorm:"not null"                           json:"submitter_id"`
	IsAdmin       bool      `gorm:"not null;default:false"             json:"is_admin"`
	ReceptionTime time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"reception_time"`
}

func (MissionValidation) TableName() string { return "mission_validations" }
