package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/dto"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/service"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/response"
)

// CertificationHandler certification module HTTP handler
type CertificationHandler struct {
	certSvc  service.CertificationService
	querySvc service.CertificationQueryService
	loc      *time.Location
	now      func() time.Time
}

// NewCertificationHandler creates a CertificationHandler
func NewCertificationHandler(certSvc service.CertificationService, querySvc service.CertificationQueryService, loc *time.Location) *CertificationHandler {
	return &CertificationHandler{certSvc: certSvc, querySvc: querySvc, loc: loc, now: time.Now}
}

// IsCompanyCertified public certification lookup
// POST /api/v1/companies/is_company_certified
func (h *CertificationHandler) IsCompanyCertified(c *gin.Context) {
	var req dto.IsCompanyCertifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "siren must be 9 digits")
		return
	}

	today, _ := mustGetDate(c, "", h.loc, h.now)
	companies, err := h.querySvc.IsCompanyCertified(c.Request.Context(), req.Siren, today)
	if err != nil {
		h.handleCertificationError(c, err)
		return
	}

	list := make([]dto.CompanyCertifiedResponse, 0, len(companies))
	for i := range companies {
		list = append(list, dto.NewCompanyCertifiedResponse(&companies[i].Company, companies[i].Certification))
	}
	response.OK(c, gin.H{"list": list})
}

// GetCompanyStatus certification status of a company
// GET /api/v1/companies/:id/certification
func (h *CertificationHandler) GetCompanyStatus(c *gin.Context) {
	companyID, ok := mustGetCompanyID(c)
	if !ok {
		return
	}

	today, _ := mustGetDate(c, "", h.loc, h.now)
	status, err := h.querySvc.GetCompanyStatus(c.Request.Context(), companyID, today)
	if err != nil {
		h.handleCertificationError(c, err)
		return
	}

	resp := dto.CompanyCertificationStatusResponse{
		CompanyID:                    status.CompanyID,
		IsCertified:                  status.IsCertified,
		LastDayCertified:             dto.FormatDatePtr(status.LastDayCertified),
		StartLastCertificationPeriod: dto.FormatDatePtr(status.StartLastCertificationPeriod),
	}
	if status.Current != nil {
		current := dto.NewCertificationResponse(status.Current)
		resp.Current = &current
	}
	response.OK(c, resp)
}

// GetCompanyScores percentage report over the month preceding ?date
// GET /api/v1/companies/:id/certification/scores
func (h *CertificationHandler) GetCompanyScores(c *gin.Context) {
	companyID, ok := mustGetCompanyID(c)
	if !ok {
		return
	}
	var q dto.DateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "invalid date, expected YYYY-MM-DD")
		return
	}
	ref, ok := mustGetDate(c, q.Date, h.loc, h.now)
	if !ok {
		return
	}

	scores, err := h.certSvc.ScoreCompany(c.Request.Context(), companyID, ref)
	if err != nil {
		h.handleCertificationError(c, err)
		return
	}

	response.OK(c, toScoresResponse(scores))
}

// ListCertifications rows stored by the run of ?attribution_date
// GET /api/v1/certifications
func (h *CertificationHandler) ListCertifications(c *gin.Context) {
	var q dto.AttributionDateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "attribution_date is required (YYYY-MM-DD)")
		return
	}
	day, ok := mustGetDate(c, q.AttributionDate, h.loc, h.now)
	if !ok {
		return
	}

	certs, err := h.querySvc.ListByAttributionDate(c.Request.Context(), day)
	if err != nil {
		h.handleCertificationError(c, err)
		return
	}

	list := make([]dto.CertificationResponse, 0, len(certs))
	certified := 0
	for i := range certs {
		if certs[i].Certified() {
			certified++
		}
		list = append(list, dto.NewCertificationResponse(&certs[i]))
	}
	response.OK(c, gin.H{"list": list, "total": len(list), "certified": certified})
}

// ── helpers ──

func toScoresResponse(s *service.CertificationScores) dto.CertificationScoresResponse {
	resp := dto.CertificationScoresResponse{
		CompanyID:       s.CompanyID,
		PeriodStart:     dto.FormatDate(s.Period.Start),
		PeriodEnd:       dto.FormatDate(s.Period.End),
		Active:          toCriterionScore(s.Active),
		ComplianceScore: s.ComplianceScore,
		Compliance:      make([]dto.ComplianceCategoryResponse, 0, len(s.Compliance)),
		Changes:         toCriterionScore(s.Changes),
		Validation:      toCriterionScore(s.Validation),
		RealTime:        toCriterionScore(s.RealTime),
	}
	for _, cat := range s.Compliance {
		resp.Compliance = append(resp.Compliance, dto.ComplianceCategoryResponse{
			Type:     string(cat.Type),
			Breaches: cat.Breaches,
			Allowed:  cat.Allowed,
			OK:       cat.OK,
		})
	}
	return resp
}

func toCriterionScore(s service.CriterionScore) dto.CriterionScoreResponse {
	return dto.CriterionScoreResponse{
		Compliant:  s.Compliant,
		Total:      s.Total,
		Percentage: s.Percentage,
		OK:         s.OK,
	}
}

func (h *CertificationHandler) handleCertificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCompanyNotFound):
		response.NotFound(c, 20001, "company not found")
	case errors.Is(err, service.ErrInvalidAttributionDate):
		response.BadRequest(c, 20002, "date must not be in the future")
	default:
		response.InternalError(c)
	}
}
