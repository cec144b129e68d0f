package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// ActivityRepository activity read access.
// Dismissed activities are never returned.
type ActivityRepository interface {
	// ListOverlapping activities of the company's missions whose time range intersects [from, to)
	ListOverlapping(ctx context.Context, companyID int64, from, to time.Time) ([]model.Activity, error)
	// ListCreated activities of the company's missions received in [from, to), versions preloaded
	ListCreated(ctx context.Context, companyID int64, from, to time.Time) ([]model.Activity, error)
	// CountNonOff activities intersecting [from, to) whose type is not off
	CountNonOff(ctx context.Context, companyID int64, from, to time.Time) (int64, error)
}

type activityRepo struct {
	db *gorm.DB
}

func NewActivityRepo(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) companyScope(ctx context.Context, companyID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Joins("JOIN missions ON missions.id = activities.mission_id").
		Where("missions.company_id = ?", companyID).
		Where("activities.dismissed_at IS NULL")
}

func overlapping(db *gorm.DB, from, to time.Time) *gorm.DB {
	return db.
		Where("activities.start_time < ?", to).
		Where("activities.end_time IS NULL OR activities.end_time > ?", from)
}

func (r *activityRepo) ListOverlapping(ctx context.Context, companyID int64, from, to time.Time) ([]model.Activity, error) {
	var activities []model.Activity
	err := overlapping(r.companyScope(ctx, companyID), from, to).
		Order("activities.user_id ASC, activities.start_time ASC").
		Find(&activities).Error
	return activities, err
}

func (r *activityRepo) ListCreated(ctx context.Context, companyID int64, from, to time.Time) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.companyScope(ctx, companyID).
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version_number ASC")
		}).
		Where("activities.creation_time >= ? AND activities.creation_time < ?", from, to).
		Order("activities.creation_time ASC").
		Find(&activities).Error
	return activities, err
}

func (r *activityRepo) CountNonOff(ctx context.Context, companyID int64, from, to time.Time) (int64, error) {
	var total int64
	err := overlapping(r.companyScope(ctx, companyID), from, to).
		Where("activities.type <> ?", model.ActivityOff).
		Count(&total).Error
	return total, err
}
