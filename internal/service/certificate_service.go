package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
	pkgerrors "github.com/MTES-MCT/mobilic-api-sub000/pkg/errors"
)

// ── certification module errors ──

var (
	ErrCompanyNotFound        = errors.New("company not found")
	ErrInvalidAttributionDate = errors.New("attribution date must not be in the future")
	ErrRunLocked              = errors.New("a certification run for this date is already in progress")
)

// Criterion names a certification criterion
type Criterion string

const (
	CriterionBeActive          Criterion = "be_active"
	CriterionBeCompliant       Criterion = "be_compliant"
	CriterionNotTooManyChanges Criterion = "not_too_many_changes"
	CriterionValidateRegularly Criterion = "validate_regularly"
	CriterionLogInRealTime     Criterion = "log_in_real_time"
	CriterionPersist           Criterion = "persist"
	CriterionPanic             Criterion = "panic"
)

// EvaluationError failure scoped to one company
type EvaluationError struct {
	CompanyID int64
	Criterion Criterion
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("company %d: %s: %v", e.CompanyID, e.Criterion, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// RunLocker cross-process exclusion for certification runs
type RunLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// CompanyOutcome result of one company's evaluation
type CompanyOutcome struct {
	CompanyID     int64
	Certification *model.CompanyCertification
	Err           error
	Duration      time.Duration
}

// RunSummary result of a certification run
type RunSummary struct {
	AttributionDate time.Time
	Period          Period
	Deleted         int64 // rows of a previous run for the same date
	Eligible        int
	Certified       int
	Skipped         int // companies never scheduled because the run was cancelled
	Successes       []CompanyOutcome
	Failures        []CompanyOutcome
	Duration        time.Duration
}

// runProgress counters shared by the workers of one run
type runProgress struct {
	total     int64
	processed atomic.Int64
	failed    atomic.Int64
	certified atomic.Int64
}

// CertificationService computes and stores company certifications
type CertificationService interface {
	// Run certifies every eligible company for the month preceding ref
	Run(ctx context.Context, ref time.Time) (*RunSummary, error)
	// CertifyCompany evaluates and stores one company's certification for ref
	CertifyCompany(ctx context.Context, companyID int64, ref time.Time) (*model.CompanyCertification, error)
	// EligibleCompanies companies with activity in the window
	EligibleCompanies(ctx context.Context, p Period) ([]model.Company, error)
	// ScoreCompany percentage report for the month preceding ref; nothing is stored
	ScoreCompany(ctx context.Context, companyID int64, ref time.Time) (*CertificationScores, error)
}

type certificationService struct {
	cfg       *config.CertificationConfig
	repo      *repository.Repository
	evaluator *CriteriaEvaluator
	locker    RunLocker
	logger    *zap.Logger
	now       func() time.Time
}

// NewCertificationService creates a CertificationService. locker may be nil.
func NewCertificationService(cfg *config.CertificationConfig, repo *repository.Repository, locker RunLocker, logger *zap.Logger) CertificationService {
	return &certificationService{
		cfg:       cfg,
		repo:      repo,
		evaluator: NewCriteriaEvaluator(cfg, logger),
		locker:    locker,
		logger:    logger,
		now:       time.Now,
	}
}

// attributionDay ref's calendar day in the configured timezone
func (s *certificationService) attributionDay(ref time.Time) (time.Time, error) {
	loc := s.cfg.Location()
	day := truncateDay(ref, loc)
	if day.After(truncateDay(s.now(), loc)) {
		return time.Time{}, ErrInvalidAttributionDate
	}
	return day, nil
}

// ────────────────────── EligibleCompanies ──────────────────────

func (s *certificationService) EligibleCompanies(ctx context.Context, p Period) ([]model.Company, error) {
	companies, err := s.repo.Company.ListEligible(ctx, p.From(), p.Until())
	if err != nil {
		s.logger.Error("Failed to list eligible companies",
			zap.Time("start", p.Start), zap.Time("end", p.End), zap.Error(err))
		return nil, err
	}
	return companies, nil
}

// ────────────────────── CertifyCompany ──────────────────────

func (s *certificationService) CertifyCompany(ctx context.Context, companyID int64, ref time.Time) (*model.CompanyCertification, error) {
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
	return s.certify(ctx, companyID, PreviousMonthPeriod(attribution), attribution)
}

// certify evaluates the company and replaces its row for attribution in one transaction.
// Every criterion runs before the first write: a failed evaluation leaves no row
// even where the transaction cannot roll back.
func (s *certificationService) certify(ctx context.Context, companyID int64, p Period, attribution time.Time) (*model.CompanyCertification, error) {
	var cert *model.CompanyCertification
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		cert, err = s.evaluate(ctx, tx, companyID, p, attribution)
		if err != nil {
			return err
		}
		if err := tx.Certification.DeleteByCompanyAndDate(ctx, companyID, attribution); err != nil {
			return &EvaluationError{CompanyID: companyID, Criterion: CriterionPersist, Err: err}
		}
		if err := tx.Certification.Create(ctx, cert); err != nil {
			return &EvaluationError{CompanyID: companyID, Criterion: CriterionPersist, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// evaluate runs the five criteria and builds the certification row
func (s *certificationService) evaluate(ctx context.Context, repo *repository.Repository, companyID int64, p Period, attribution time.Time) (*model.CompanyCertification, error) {
	cert := &model.CompanyCertification{
		ID:              uuid.NewString(),
		CompanyID:       companyID,
		AttributionDate: civilDate(attribution),
	}

	criteria := []struct {
		name Criterion
		eval func(context.Context, *repository.Repository, int64, Period) (bool, error)
		dst  *bool
	}{
		{CriterionBeActive, s.evaluator.BeActive, &cert.BeActive},
		{CriterionBeCompliant, s.evaluator.BeCompliant, &cert.BeCompliant},
		{CriterionNotTooManyChanges, s.evaluator.NotTooManyChanges, &cert.NotTooManyChanges},
		{CriterionValidateRegularly, s.evaluator.ValidateRegularly, &cert.ValidateRegularly},
		{CriterionLogInRealTime, s.evaluator.LogInRealTime, &cert.LogInRealTime},
	}
	for _, c := range criteria {
		ok, err := c.eval(ctx, repo, companyID, p)
		if err != nil {
			return nil, &EvaluationError{CompanyID: companyID, Criterion: c.name, Err: err}
		}
		*c.dst = ok
	}

	if cert.BeActive && cert.BeCompliant && cert.NotTooManyChanges && cert.ValidateRegularly && cert.LogInRealTime {
		exp := civilDate(CertificateExpiration(attribution, s.cfg.LifetimeMonths))
		cert.ExpirationDate = &exp
	}
	return cert, nil
}

// ════════════════════════════════════════════════════════════════
// Run: monthly batch over every eligible company
// ════════════════════════════════════════════════════════════════

func (s *certificationService) Run(ctx context.Context, ref time.Time) (*RunSummary, error) {
	started := time.Now()
	attribution, err := s.attributionDay(ref)
	if err != nil {
		return nil, err
	}
	dayKey := attribution.Format("2006-01-02")

	release, err := s.acquireRunLock(ctx, dayKey)
	if err != nil {
		return nil, err
	}
	defer release()

	// 1. drop rows of a previous run for the same day
	deleted, err := s.repo.Certification.DeleteByAttributionDate(ctx, attribution)
	if err != nil {
		s.logger.Error("Failed to clear previous certifications", zap.String("attribution_date", dayKey), zap.Error(err))
		return nil, fmt.Errorf("clear certifications of %s: %w", dayKey, err)
	}

	// 2. window
	period := PreviousMonthPeriod(attribution)
	summary := &RunSummary{AttributionDate: attribution, Period: period, Deleted: deleted}

	// 3. eligible companies
	companies, err := s.EligibleCompanies(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("select eligible companies: %w", err)
	}
	summary.Eligible = len(companies)
	s.logger.Info("Certification run started",
		zap.String("attribution_date", dayKey),
		zap.String("period_start", period.Start.Format("2006-01-02")),
		zap.String("period_end", period.End.Format("2006-01-02")),
		zap.Int64("previous_rows_deleted", deleted),
		zap.Int("eligible_companies", len(companies)),
	)
	if len(companies) == 0 {
		summary.Duration = time.Since(started)
		return summary, nil
	}

	// 4. evaluate every company in its own transaction
	progress := &runProgress{total: int64(len(companies))}
	outcomes, scheduled := s.certifyAll(ctx, companies, period, attribution, progress)
	for _, o := range outcomes {
		if o.Err != nil {
			summary.Failures = append(summary.Failures, o)
			continue
		}
		summary.Successes = append(summary.Successes, o)
		if o.Certification.Certified() {
			summary.Certified++
		}
	}
	summary.Skipped = len(companies) - scheduled
	summary.Duration = time.Since(started)

	s.logger.Info("Certification run finished",
		zap.String("attribution_date", dayKey),
		zap.Int("eligible", summary.Eligible),
		zap.Int64("processed", progress.processed.Load()),
		zap.Int64("certified", progress.certified.Load()),
		zap.Int64("failed", progress.failed.Load()),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration),
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("certification run interrupted: %w", err)
	}
	return summary, nil
}

// certifyAll fans companies out over a bounded pool.
// Scheduling stops when ctx is cancelled; scheduled reports how many were started.
func (s *certificationService) certifyAll(ctx context.Context, companies []model.Company, p Period, attribution time.Time, progress *runProgress) (outcomes []CompanyOutcome, scheduled int) {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan CompanyOutcome, len(companies))
	var g errgroup.Group
	g.SetLimit(workers)

	for i := range companies {
		if ctx.Err() != nil {
			break
		}
		companyID := companies[i].ID
		scheduled++
		g.Go(func() error {
			results <- s.certifyOne(ctx, companyID, p, attribution, progress)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	outcomes = make([]CompanyOutcome, 0, scheduled)
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes, scheduled
}

// certifyOne bounded evaluation of a single company; never panics past this point
func (s *certificationService) certifyOne(ctx context.Context, companyID int64, p Period, attribution time.Time, progress *runProgress) (outcome CompanyOutcome) {
	started := time.Now()
	outcome.CompanyID = companyID

	defer func() {
		if r := recover(); r != nil {
			outcome.Certification = nil
			outcome.Err = &EvaluationError{CompanyID: companyID, Criterion: CriterionPanic, Err: fmt.Errorf("%v", r)}
		}
		outcome.Duration = time.Since(started)
		done := progress.processed.Add(1)
		if outcome.Err != nil {
			progress.failed.Add(1)
			s.logger.Error("Company certification failed",
				zap.Int64("company_id", companyID),
				zap.Int64("progress", done),
				zap.Int64("total", progress.total),
				zap.Error(outcome.Err),
			)
			return
		}
		if outcome.Certification.Certified() {
			progress.certified.Add(1)
		}
		s.logger.Debug("Company certified",
			zap.Int64("company_id", companyID),
			zap.Bool("certified", outcome.Certification.Certified()),
			zap.Int64("progress", done),
			zap.Int64("total", progress.total),
			zap.Duration("duration", outcome.Duration),
		)
	}()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CompanyTimeout)
	defer cancel()

	outcome.Certification, outcome.Err = s.certify(cctx, companyID, p, attribution)
	return outcome
}

// acquireRunLock takes the distributed lock of the day when a locker is configured.
// An unreachable lock backend degrades to an unlocked run.
func (s *certificationService) acquireRunLock(ctx context.Context, dayKey string) (release func(), err error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	key := "certification:run:" + dayKey
	ttl := s.cfg.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	token, err := s.locker.AcquireLock(ctx, key, ttl)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrLockNotAcquired) {
			return nil, ErrRunLocked
		}
		s.logger.Warn("Run lock unavailable, continuing without it", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	return func() {
		// the run context may already be cancelled
		if err := s.locker.ReleaseLock(context.Background(), key, token); err != nil {
			s.logger.Warn("Failed to release run lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
