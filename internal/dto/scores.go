package dto

// ── scores report DTOs ──

// CriterionScoreResponse share of compliant items for one criterion
type CriterionScoreResponse struct {
	Compliant  int     `json:"compliant"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	OK         bool    `json:"ok"`
}

// ComplianceCategoryResponse breaches of one regulation check type
type ComplianceCategoryResponse struct {
	Type     string `json:"type"`
	Breaches int    `json:"breaches"`
	Allowed  int    `json:"allowed"`
	OK       bool   `json:"ok"`
}

// CertificationScoresResponse GET /companies/:id/certification/scores
type CertificationScoresResponse struct {
	CompanyID       int64                        `json:"company_id"`
	PeriodStart     string                       `json:"period_start"`
	PeriodEnd       string                       `json:"period_end"`
	Active          CriterionScoreResponse       `json:"active"`
	ComplianceScore int                          `json:"compliance_score"`
	Compliance      []ComplianceCategoryResponse `json:"compliance"`
	Changes         CriterionScoreResponse       `json:"changes"`
	Validation      CriterionScoreResponse       `json:"validation"`
	RealTime        CriterionScoreResponse       `json:"real_time"`
}
