package repository

import (
	"context"

	"gorm.io/gorm"
)

// dateLayout format used for DATE column bounds
const dateLayout = "2006-01-02"

// Repository aggregates every repository of the certification engine
type Repository struct {
	Company       CompanyRepository
	Employment    EmploymentRepository
	Mission       MissionRepository
	Activity      ActivityRepository
	Alert         RegulatoryAlertRepository
	Certification CertificationRepository

	Tx Transactor
}

// Transactor runs fn against a Repository bound to a single transaction.
// A nil error from fn commits, anything else rolls back.
type Transactor interface {
	Transaction(ctx context.Context, fn func(repo *Repository) error) error
}

// NewRepository builds the aggregate on top of db
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Company:       NewCompanyRepo(db),
		Employment:    NewEmploymentRepo(db),
		Mission:       NewMissionRepo(db),
		Activity:      NewActivityRepo(db),
		Alert:         NewRegulatoryAlertRepo(db),
		Certification: NewCertificationRepo(db),
		Tx:            &gormTransactor{db: db},
	}
}

// Transaction runs fn inside a transaction scope
func (r *Repository) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.Tx.Transaction(ctx, fn)
}

// ── gorm transactor ──

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
