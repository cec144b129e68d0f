package handler

import (
	"time"

	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/service"
)

// Handler aggregates every HTTP handler
type Handler struct {
	Certification *CertificationHandler
	Export        *ExportHandler
}

// NewHandler creates the Handler aggregate; loc cuts "today" for date defaults
func NewHandler(svc *service.Service, loc *time.Location, logger *zap.Logger) *Handler {
	return &Handler{
		Certification: NewCertificationHandler(svc.Certification, svc.Query, loc),
		Export:        NewExportHandler(svc.Export, loc, logger),
	}
}
