package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/dto"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/service"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler export module HTTP handler
type ExportHandler struct {
	exportSvc service.ExportService
	loc       *time.Location
	logger    *zap.Logger
}

// NewExportHandler creates an ExportHandler
func NewExportHandler(exportSvc service.ExportService, loc *time.Location, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, loc: loc, logger: logger}
}

// ExportCertifications downloads the workbook of a run
// GET /api/v1/export/certifications?attribution_date=2023-03-01
func (h *ExportHandler) ExportCertifications(c *gin.Context) {
	var q dto.AttributionDateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "attribution_date is required (YYYY-MM-DD)")
		return
	}
	day, err := dto.ParseDate(q.AttributionDate, h.loc)
	if err != nil {
		response.BadRequest(c, 10001, "invalid date, expected YYYY-MM-DD")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCertifications(c.Request.Context(), day)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	h.logger.Info("Certification export downloaded",
		zap.String("user_id", userID),
		zap.String("attribution_date", q.AttributionDate),
	)

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoCertifications):
		response.NotFound(c, 21001, "no certification for this attribution date")
	default:
		response.InternalError(c)
	}
}
