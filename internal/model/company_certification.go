package model

import "time"

// CompanyCertification company_certifications table.
// One row per (company, attribution date); written by the certification batch only.
type CompanyCertification struct {
	ID                string     `gorm:"type:uuid;primaryKey"               json:"id"`
	CompanyID         int64      `gorm:"not null"                           json:"company_id"`
	AttributionDate   time.Time  `gorm:"type:date;not null"                 json:"attribution_date"`
	ExpirationDate    *time.Time `gorm:"type:date"                          json:"expiration_date,omitempty"` // nil = not certified
	BeActive          bool       `gorm:"not null"                           json:"be_active"`
	BeCompliant       bool       `gorm:"not null"                           json:"be_compliant"`
	NotTooManyChanges bool       `gorm:"not null"                           json:"not_too_many_changes"`
	ValidateRegularly bool       `gorm:"not null"                           json:"validate_regularly"`
	LogInRealTime     bool       `gorm:"not null"                           json:"log_in_real_time"`
	CreatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (CompanyCertification) TableName() string { return "company_certifications" }

// Certified reports whether every criterion passed
func (c *CompanyCertification) Certified() bool {
	return c.ExpirationDate != nil
}

// ValidOn reports whether the certification covers the calendar day of day
func (c *CompanyCertification) ValidOn(day time.Time) bool {
	if !c.Certified() {
		return false
	}
	d := civilDay(day)
	return !d.Before(civilDay(c.AttributionDate)) && !d.After(civilDay(*c.ExpirationDate))
}
