package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// CertificationRepository company certification data access
type CertificationRepository interface {
	Create(ctx context.Context, cert *model.CompanyCertification) error
	DeleteByAttributionDate(ctx context.Context, day time.Time) (int64, error)
	DeleteByCompanyAndDate(ctx context.Context, companyID int64, day time.Time) error
	// ListByCompanies rows of the given companies, attribution date ascending
	ListByCompanies(ctx context.Context, companyIDs []int64) ([]model.CompanyCertification, error)
	// ListByAttributionDate rows of one run, company preloaded
	ListByAttributionDate(ctx context.Context, day time.Time) ([]model.CompanyCertification, error)
}

type certificationRepo struct {
	db *gorm.DB
}

func NewCertificationRepo(db *gorm.DB) CertificationRepository {
	return &certificationRepo{db: db}
}

func (r *certificationRepo) Create(ctx context.Context, cert *model.CompanyCertification) error {
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *certificationRepo) DeleteByAttributionDate(ctx context.Context, day time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("attribution_date = ?", day.Format(dateLayout)).
		Delete(&model.CompanyCertification{})
	return result.RowsAffected, result.Error
}

func (r *certificationRepo) DeleteByCompanyAndDate(ctx context.Context, companyID int64, day time.Time) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND attribution_date = ?", companyID, day.Format(dateLayout)).
		Delete(&model.CompanyCertification{}).Error
}

func (r *certificationRepo) ListByCompanies(ctx context.Context, companyIDs []int64) ([]model.CompanyCertification, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	var certs []model.CompanyCertification
	err := r.db.WithContext(ctx).
		Where("company_id IN ?", companyIDs).
		Order("attribution_date ASC, company_id ASC").
		Find(&certs).Error
	return certs, err
}

func (r *certificationRepo) ListByAttributionDate(ctx context.Context, day time.Time) ([]model.CompanyCertification, error) {
	var certs []model.CompanyCertification
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("attribution_date = ?", day.Format(dateLayout)).
		Order("company_id ASC").
		Find(&certs).Error
	return certs, err
}
