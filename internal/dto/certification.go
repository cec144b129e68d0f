package dto

import (
	"time"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// ── certification module DTOs ──

// IsCompanyCertifiedRequest public lookup by SIREN
type IsCompanyCertifiedRequest struct {
	Siren string `json:"siren" binding:"required,len=9,numeric"`
}

// CertificationResponse one stored certification row
type CertificationResponse struct {
	ID                string  `json:"id"`
	CompanyID         int64   `json:"company_id"`
	CompanyName       string  `json:"company_name,omitempty"`
	Siren             string  `json:"siren,omitempty"`
	AttributionDate   string  `json:"attribution_date"`
	ExpirationDate    *string `json:"expiration_date"`
	Certified         bool    `json:"certified"`
	BeActive          bool    `json:"be_active"`
	BeCompliant       bool    `json:"be_compliant"`
	NotTooManyChanges bool    `json:"not_too_many_changes"`
	ValidateRegularly bool    `json:"validate_regularly"`
	LogInRealTime     bool    `json:"log_in_real_time"`
	CreatedAt         string  `json:"created_at"`
}

// CompanyCertifiedResponse answer of the public lookup, one per company sharing the SIREN
type CompanyCertifiedResponse struct {
	CompanyID      int64   `json:"company_id"`
	Name           string  `json:"name"`
	Siren          string  `json:"siren"`
	IsCertified    bool    `json:"is_certified"`
	ExpirationDate *string `json:"expiration_date"`
}

// CompanyCertificationStatusResponse GET /companies/:id/certification
type CompanyCertificationStatusResponse struct {
	CompanyID                    int64                  `json:"company_id"`
	IsCertified                  bool                   `json:"is_certified"`
	LastDayCertified             *string                `json:"last_day_certified"`
	StartLastCertificationPeriod *string                `json:"start_last_certification_period"`
	Current                      *CertificationResponse `json:"current,omitempty"`
}

// NewCertificationResponse maps a stored row
func NewCertificationResponse(c *model.CompanyCertification) CertificationResponse {
	resp := CertificationResponse{
		ID:                c.ID,
		CompanyID:         c.CompanyID,
		AttributionDate:   FormatDate(c.AttributionDate),
		ExpirationDate:    FormatDatePtr(c.ExpirationDate),
		Certified:         c.Certified(),
		BeActive:          c.BeActive,
		BeCompliant:       c.BeCompliant,
		NotTooManyChanges: c.NotTooManyChanges,
		ValidateRegularly: c.ValidateRegularly,
		LogInRealTime:     c.LogInRealTime,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
	}
	if c.Company != nil {
		resp.CompanyName = c.Company.Name
		resp.Siren = c.Company.Siren
	}
	return resp
}

// NewCompanyCertifiedResponse cert is nil when the company is not currently certified
func NewCompanyCertifiedResponse(company *model.Company, cert *model.CompanyCertification) CompanyCertifiedResponse {
	resp := CompanyCertifiedResponse{
		CompanyID: company.ID,
		Name:      company.Name,
		Siren:     company.Siren,
	}
	if cert != nil {
		resp.IsCertified = true
		resp.ExpirationDate = FormatDatePtr(cert.ExpirationDate)
	}
	return resp
}
