package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// MissionRepository mission read access
type MissionRepository interface {
	// ListWithActivityEndingIn missions of the company with at least one non-dismissed
	// activity ending in [from, to). Ends, validations and non-dismissed activities are preloaded.
	ListWithActivityEndingIn(ctx context.Context, companyID int64, from, to time.Time) ([]model.Mission, error)
}

type missionRepo struct {
	db *gorm.DB
}

func NewMissionRepo(db *gorm.DB) MissionRepository {
	return &missionRepo{db: db}
}

func (r *missionRepo) ListWithActivityEndingIn(ctx context.Context, companyID int64, from, to time.Time) ([]model.Mission, error) {
	sub := r.db.Model(&model.Activity{}).
		Select("DISTINCT activities.mission_id").
		Where("activities.dismissed_at IS NULL").
		Where("activities.end_time >= ? AND activities.end_time < ?", from, to)

	var missions []model.Mission
	err := r.db.WithContext(ctx).
		Preload("Ends").
		Preload("Validations", func(db *gorm.DB) *gorm.DB {
			return db.Order("reception_time ASC")
		}).
		Preload("Activities", "dismissed_at IS NULL").
		Where("company_id = ?", companyID).
		Where("id IN (?)", sub).
		Order("id ASC").
		Find(&missions).Error
	return missions, err
}
