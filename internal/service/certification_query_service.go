package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
)

// CompanyCertificationStatus certification state of a company on a given day
type CompanyCertificationStatus struct {
	CompanyID                    int64
	IsCertified                  bool
	LastDayCertified             *time.Time
	StartLastCertificationPeriod *time.Time
	Current                      *model.CompanyCertification
}

// CertifiedCompany a company sharing the requested SIREN and its current certification
type CertifiedCompany struct {
	Company       model.Company
	Certification *model.CompanyCertification // nil when not currently certified
}

// CertificationQueryService read side of company certifications
type CertificationQueryService interface {
	IsCompanyCertified(ctx context.Context, siren string, today time.Time) ([]CertifiedCompany, error)
	GetCompanyStatus(ctx context.Context, companyID int64, today time.Time) (*CompanyCertificationStatus, error)
	ListByAttributionDate(ctx context.Context, day time.Time) ([]model.CompanyCertification, error)
}

type certificationQueryService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewCertificationQueryService creates a CertificationQueryService; days are cut in loc
func NewCertificationQueryService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) CertificationQueryService {
	return &certificationQueryService{repo: repo, loc: loc, logger: logger}
}

// ────────────────────── IsCompanyCertified ──────────────────────

func (s *certificationQueryService) IsCompanyCertified(ctx context.Context, siren string, today time.Time) ([]CertifiedCompany, error) {
	companies, err := s.repo.Company.ListBySiren(ctx, siren)
	if err != nil {
		s.logger.Error("Failed to list companies by SIREN", zap.String("siren", siren), zap.Error(err))
		return nil, err
	}
	if len(companies) == 0 {
		return nil, ErrCompanyNotFound
	}

	ids := make([]int64, 0, len(companies))
	for i := range companies {
		ids = append(ids, companies[i].ID)
	}
	certs, err := s.repo.Certification.ListByCompanies(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to list certifications", zap.String("siren", siren), zap.Error(err))
		return nil, err
	}

	day := truncateDay(today, s.loc)
	current := make(map[int64]*model.CompanyCertification)
	for i := range certs {
		c := &certs[i]
		if !c.ValidOn(day) {
			continue
		}
		// latest attribution wins
		if prev, ok := current[c.CompanyID]; !ok || c.AttributionDate.After(prev.AttributionDate) {
			current[c.CompanyID] = c
		}
	}

	result := make([]CertifiedCompany, 0, len(companies))
	for i := range companies {
		result = append(result, CertifiedCompany{Company: companies[i], Certification: current[companies[i].ID]})
	}
	return result, nil
}

// ────────────────────── GetCompanyStatus ──────────────────────

func (s *certificationQueryService) GetCompanyStatus(ctx context.Context, companyID int64, today time.Time) (*CompanyCertificationStatus, error) {
	if _, err := s.repo.Company.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		s.logger.Error("Failed to get company", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, err
	}

	certs, err := s.repo.Certification.ListByCompanies(ctx, []int64{companyID})
	if err != nil {
		s.logger.Error("Failed to list certifications", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, err
	}

	day := truncateDay(today, s.loc)
	dayCivil := civilDate(day)

	// certified rows already attributed, attribution ascending
	var certified []*model.CompanyCertification
	for i := range certs {
		c := &certs[i]
		if c.Certified() && !c.AttributionDate.After(dayCivil) {
			certified = append(certified, c)
		}
	}

	status := &CompanyCertificationStatus{CompanyID: companyID}
	if len(certified) == 0 {
		return status, nil
	}

	last := certified[len(certified)-1]
	status.Current = last
	status.IsCertified = last.ValidOn(day)
	lastDay := *last.ExpirationDate
	status.LastDayCertified = &lastDay

	// walk back while validity windows touch
	start := last.AttributionDate
	for i := len(certified) - 2; i >= 0; i-- {
		prev := certified[i]
		if prev.ExpirationDate.Before(start.AddDate(0, 0, -1)) {
			break
		}
		if prev.AttributionDate.Before(start) {
			start = prev.AttributionDate
		}
	}
	status.StartLastCertificationPeriod = &start
	if !status.IsCertified {
		status.Current = nil
	}
	return status, nil
}

// ────────────────────── ListByAttributionDate ──────────────────────

func (s *certificationQueryService) ListByAttributionDate(ctx context.Context, day time.Time) ([]model.CompanyCertification, error) {
	certs, err := s.repo.Certification.ListByAttributionDate(ctx, day)
	if err != nil {
		s.logger.Error("Failed to list certifications of a run",
			zap.String("attribution_date", day.Format("2006-01-02")), zap.Error(err))
		return nil, err
	}
	return certs, nil
}
