package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// EmploymentRepository employment roster data access
type EmploymentRepository interface {
	// ListByCompany non-dismissed employments overlapping the [startDay, endDay] date range
	ListByCompany(ctx context.Context, companyID int64, startDay, endDay time.Time) ([]model.Employment, error)
}

type employmentRepo struct {
	db *gorm.DB
}

func NewEmploymentRepo(db *gorm.DB) EmploymentRepository {
	return &employmentRepo{db: db}
}

func (r *employmentRepo) ListByCompany(ctx context.Context, companyID int64, startDay, endDay time.Time) ([]model.Employment, error) {
	var employments []model.Employment
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND dismissed_at IS NULL", companyID).
		Where("start_date <= ?", endDay.Format(dateLayout)).
		Where("end_date IS NULL OR end_date >= ?", startDay.Format(dateLayout)).
		Order("user_id ASC, start_date ASC").
		Find(&employments).Error
	return employments, err
}
