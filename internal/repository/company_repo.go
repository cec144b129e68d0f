package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// CompanyRepository company data access
type CompanyRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Company, error)
	ListBySiren(ctx context.Context, siren string) ([]model.Company, error)
	// ListEligible companies owning at least one mission created in [from, to)
	// that carries a non-dismissed activity.
	ListEligible(ctx context.Context, from, to time.Time) ([]model.Company, error)
}

type companyRepo struct {
	db *gorm.DB
}

func NewCompanyRepo(db *gorm.DB) CompanyRepository {
	return &companyRepo{db: db}
}

func (r *companyRepo) GetByID(ctx context.Context, id int64) (*model.Company, error) {
	var company model.Company
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) ListBySiren(ctx context.Context, siren string) ([]model.Company, error) {
	var companies []model.Company
	err := r.db.WithContext(ctx).
		Where("siren = ?", siren).
		Order("id ASC").
		Find(&companies).Error
	return companies, err
}

func (r *companyRepo) ListEligible(ctx context.Context, from, to time.Time) ([]model.Company, error) {
	sub := r.db.Model(&model.Mission{}).
		Select("DISTINCT missions.company_id").
		Joins("JOIN activities ON activities.mission_id = missions.id").
		Where("missions.creation_time >= ? AND missions.creation_time < ?", from, to).
		Where("activities.dismissed_at IS NULL")

	var companies []model.Company
	err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("id ASC").
		Find(&companies).Error
	return companies, err
}
