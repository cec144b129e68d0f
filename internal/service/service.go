package service

import (
	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
)

// Service aggregates every service
type Service struct {
	Certification CertificationService
	Query         CertificationQueryService
	Export        ExportService
}

// NewService creates the Service aggregate. locker may be nil.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker RunLocker,
	logger *zap.Logger,
) *Service {
	return &Service{
		Certification: NewCertificationService(&cfg.Certification, repo, locker, logger),
		Query:         NewCertificationQueryService(repo, cfg.Certification.Location(), logger),
		Export:        NewExportService(repo, logger),
	}
}
