package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
)

// CriterionScore share of compliant items for one criterion
type CriterionScore struct {
	Compliant  int     `json:"compliant"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	OK         bool    `json:"ok"`
}

// ComplianceCategory real breaches of one regulation check type
type ComplianceCategory struct {
	Type     model.RegulationCheckType `json:"type"`
	Breaches int                       `json:"breaches"`
	Allowed  int                       `json:"allowed"`
	OK       bool                      `json:"ok"`
}

// CertificationScores percentage report of a company over a window.
// It is informative only: no certification decision is derived from it.
type CertificationScores struct {
	CompanyID       int64                `json:"company_id"`
	Period          Period               `json:"-"`
	Active          CriterionScore       `json:"active"`
	ComplianceScore int                  `json:"compliance_score"` // categories within allowance, 0-6
	Compliance      []ComplianceCategory `json:"compliance"`
	Changes         CriterionScore       `json:"changes"` // activities kept as logged by their owner
	Validation      CriterionScore       `json:"validation"`
	RealTime        CriterionScore       `json:"real_time"`
}

func (s *certificationService) ScoreCompany(ctx context.Context, companyID int64, ref time.Time) (*CertificationScores, error) {
	attribution, err := s.attributionDay(ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Company.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	p := PreviousMonthPeriod(attribution)
	return s.evaluator.Scores(ctx, s.repo, companyID, p)
}

// Scores computes the percentage report for one company and window
func (e *CriteriaEvaluator) Scores(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (*CertificationScores, error) {
	minPct := e.cfg.Scoring.MinPercentage
	scores := &CertificationScores{CompanyID: companyID, Period: p}

	active, err := e.tallyActive(ctx, repo, companyID, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CriterionBeActive, err)
	}
	scores.Active = newCriterionScore(active.activeDrivers, active.drivers, minPct)

	// compliance: each check type may breach up to a share of the logged activity
	compliance, err := e.tallyCompliance(ctx, repo, companyID, p, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CriterionBeCompliant, err)
	}
	nonOff, err := repo.Activity.CountNonOff(ctx, companyID, p.From(), p.Until())
	if err != nil {
		return nil, fmt.Errorf("%s: count activities: %w", CriterionBeCompliant, err)
	}
	allowed := ceilPercent(int(nonOff), e.cfg.Compliance.MaxAlertsAllowedPercentage)
	for _, checkType := range model.AllRegulationCheckTypes {
		cat := ComplianceCategory{Type: checkType, Breaches: compliance.breaches[checkType], Allowed: allowed}
		cat.OK = cat.Breaches <= allowed
		if cat.OK {
			scores.ComplianceScore++
		}
		scores.Compliance = append(scores.Compliance, cat)
	}

	changed, total, _, err := e.tallyChanges(ctx, repo, companyID, p, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CriterionNotTooManyChanges, err)
	}
	scores.Changes = newCriterionScore(total-changed, total, minPct)

	ok, total, err := e.tallyValidation(ctx, repo, companyID, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CriterionValidateRegularly, err)
	}
	scores.Validation = newCriterionScore(ok, total, minPct)

	tolerance := time.Duration(e.cfg.Scoring.RealTimeToleranceMinutes) * time.Minute
	ok, total, err = e.tallyRealTime(ctx, repo, companyID, p, tolerance)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CriterionLogInRealTime, err)
	}
	scores.RealTime = newCriterionScore(ok, total, minPct)

	return scores, nil
}

// newCriterionScore an empty population scores 100%
func newCriterionScore(compliant, total, minPct int) CriterionScore {
	if total == 0 {
		return CriterionScore{Percentage: 100, OK: true}
	}
	return CriterionScore{
		Compliant:  compliant,
		Total:      total,
		Percentage: float64(compliant) * 100 / float64(total),
		OK:         compliant*100 >= minPct*total,
	}
}
