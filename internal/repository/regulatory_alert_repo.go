package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
)

// RegulatoryAlertRepository regulatory alert read access
type RegulatoryAlertRepository interface {
	// ListByUsers employee-submitted alerts of the given users with day in [startDay, endDay], check preloaded
	ListByUsers(ctx context.Context, userIDs []int64, startDay, endDay time.Time) ([]model.RegulatoryAlert, error)
}

type regulatoryAlertRepo struct {
	db *gorm.DB
}

func NewRegulatoryAlertRepo(db *gorm.DB) RegulatoryAlertRepository {
	return &regulatoryAlertRepo{db: db}
}

func (r *regulatoryAlertRepo) ListByUsers(ctx context.Context, userIDs []int64, startDay, endDay time.Time) ([]model.RegulatoryAlert, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var alerts []model.RegulatoryAlert
	err := r.db.WithContext(ctx).
		Preload("RegulationCheck").
		Where("user_id IN ?", userIDs).
		Where("submitter_type = ?", model.SubmitterTypeEmployee).
		Where("day >= ? AND day <= ?", startDay.Format(dateLayout), endDay.Format(dateLayout)).
		Order("day ASC, id ASC").
		Find(&alerts).Error
	return alerts, err
}
