package model

import "time"

// Company companies table
type Company struct {
	ID        int64     `gorm:"primaryKey"                         json:"id"`
	Name      string    `gorm:"type:varchar(255);not null"         json:"name"`
	Siren     string    `gorm:"type:varchar(9)"                    json:"siren,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Company) TableName() string { return "companies" }

// Employment employments table: a user's time-bounded attachment to a company
type Employment struct {
	ID             int64      `gorm:"primaryKey"             json:"id"`
	UserID         int64      `gorm:"not null"               json:"user_id"`
	CompanyID      int64      `gorm:"not null"               json:"company_id"`
	StartDate      time.Time  `gorm:"type:date;not null"     json:"start_date"`
	EndDate        *time.Time `gorm:"type:date"              json:"end_date,omitempty"` // nil = still employed
	HasAdminRights bool       `gorm:"not null;default:false" json:"has_admin_rights"`
	Dismissable

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Employment) TableName() string { return "employments" }

// ActiveAt reports whether the employment covers the calendar day of t.
// Dates are compared in t's location.
func (e *Employment) ActiveAt(t time.Time) bool {
	if e.IsDismissed() {
		return false
	}
	day := civilDay(t)
	if day.Before(civilDay(e.StartDate)) {
		return false
	}
	return e.EndDate == nil || !day.After(civilDay(*e.EndDate))
}
