package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
)

// ════════════════════════════════════════════════════════════════
// CriteriaEvaluator: the five certification criteria
// ════════════════════════════════════════════════════════════════
//
// Every criterion reads through the given repository (bound to the
// company's transaction by the caller) and has no side effect.
// The boolean methods implement the record-keeping model; the tallies
// they are built on are shared with the percentage report.

// CriteriaEvaluator evaluates certification criteria for one company and window
type CriteriaEvaluator struct {
	cfg    *config.CertificationConfig
	logger *zap.Logger
}

// NewCriteriaEvaluator creates a CriteriaEvaluator
func NewCriteriaEvaluator(cfg *config.CertificationConfig, logger *zap.Logger) *CriteriaEvaluator {
	return &CriteriaEvaluator{cfg: cfg, logger: logger}
}

// ────────────────────── be active ──────────────────────

type activeTally struct {
	drivers       int
	activeDrivers int
	employees     int
	threshold     int
}

// required number of individually active drivers
func (t activeTally) required() int {
	if t.drivers < t.threshold {
		return t.drivers
	}
	return t.threshold
}

// BeActive reports whether enough drivers logged a steady activity during the window.
// A company without drivers is never active.
func (e *CriteriaEvaluator) BeActive(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (bool, error) {
	t, err := e.tallyActive(ctx, repo, companyID, p)
	if err != nil {
		return false, err
	}
	if t.drivers == 0 {
		return false, nil
	}
	return t.activeDrivers >= t.required(), nil
}

func (e *CriteriaEvaluator) tallyActive(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (activeTally, error) {
	var t activeTally

	activities, err := repo.Activity.ListOverlapping(ctx, companyID, p.From(), p.Until())
	if err != nil {
		return t, fmt.Errorf("list activities: %w", err)
	}
	employments, err := repo.Employment.ListByCompany(ctx, companyID, p.Start, p.End)
	if err != nil {
		return t, fmt.Errorf("list employments: %w", err)
	}

	// user -> day -> activity count
	perDay := make(map[int64]map[time.Time]int)
	for i := range activities {
		a := &activities[i]
		if a.Type == model.ActivityOff {
			continue
		}
		days, ok := perDay[a.UserID]
		if !ok {
			days = make(map[time.Time]int)
			perDay[a.UserID] = days
		}
		for _, d := range p.touchedDays(a.StartTime, a.EndTime) {
			days[d]++
		}
	}

	t.drivers = len(perDay)
	for _, days := range perDay {
		activeDays := 0
		for _, n := range days {
			if n >= e.cfg.Active.MinActivitiesPerDay {
				activeDays++
			}
		}
		if activeDays >= e.cfg.Active.MinActiveDays {
			t.activeDrivers++
		}
	}

	employees := make(map[int64]struct{})
	for i := range employments {
		employees[employments[i].UserID] = struct{}{}
	}
	for uid := range perDay {
		employees[uid] = struct{}{}
	}
	t.employees = len(employees)
	t.threshold = e.activeThreshold(t.employees)
	return t, nil
}

// activeThreshold fixed floor for small companies, a share of the workforce above
func (e *CriteriaEvaluator) activeThreshold(employees int) int {
	a := e.cfg.Active
	if employees <= a.SmallCompanyMaxUsers {
		return a.MinDrivers
	}
	if n := ceilPercent(employees, a.DriversPercentage); n > a.MinDrivers {
		return n
	}
	return a.MinDrivers
}

// ────────────────────── be compliant ──────────────────────

// complianceTally real breaches per regulation check type
type complianceTally struct {
	breaches      map[model.RegulationCheckType]int
	weeklyRestHit bool
	total         int
}

// BeCompliant reports whether the company's users stayed within labor rules.
// Any weekly rest alert fails the criterion; other alerts count only past their tolerance.
func (e *CriteriaEvaluator) BeCompliant(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (bool, error) {
	t, err := e.tallyCompliance(ctx, repo, companyID, p, true)
	if err != nil {
		return false, err
	}
	if t.weeklyRestHit {
		return false, nil
	}
	return t.total <= e.cfg.Compliance.MaxAlertsAllowed, nil
}

func (e *CriteriaEvaluator) tallyCompliance(ctx context.Context, repo *repository.Repository, companyID int64, p Period, stopOnWeeklyRest bool) (complianceTally, error) {
	t := complianceTally{breaches: make(map[model.RegulationCheckType]int)}

	userIDs, err := companyUserIDs(ctx, repo, companyID, p)
	if err != nil {
		return t, err
	}
	alerts, err := repo.Alert.ListByUsers(ctx, userIDs, p.Start, p.End)
	if err != nil {
		return t, fmt.Errorf("list regulatory alerts: %w", err)
	}

	for i := range alerts {
		alert := &alerts[i]
		if alert.RegulationCheck == nil {
			return t, fmt.Errorf("alert %d: regulation check not loaded", alert.ID)
		}
		checkType := alert.RegulationCheck.Type

		if checkType == model.CheckMaximumWorkedDaysInWeek {
			t.weeklyRestHit = true
			t.breaches[checkType]++
			t.total++
			if stopOnWeeklyRest {
				return t, nil
			}
			continue
		}

		extra, err := ParseAlertExtra(checkType, alert.Extra)
		if err != nil {
			if errors.Is(err, ErrUnknownCheckType) {
				e.logger.Warn("Ignoring alert with unknown check type",
					zap.Int64("alert_id", alert.ID), zap.String("type", string(checkType)))
				continue
			}
			return t, fmt.Errorf("alert %d: %w", alert.ID, err)
		}
		if IsRealBreach(extra, AlertTolerance(&e.cfg.Compliance, checkType)) {
			t.breaches[checkType]++
			t.total++
		}
	}
	return t, nil
}

// companyUserIDs employment roster of the window plus every user who logged activity in it
func companyUserIDs(ctx context.Context, repo *repository.Repository, companyID int64, p Period) ([]int64, error) {
	employments, err := repo.Employment.ListByCompany(ctx, companyID, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("list employments: %w", err)
	}
	activities, err := repo.Activity.ListOverlapping(ctx, companyID, p.From(), p.Until())
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for i := range employments {
		add(employments[i].UserID)
	}
	for i := range activities {
		add(activities[i].UserID)
	}
	return ids, nil
}

// ────────────────────── not too many changes ──────────────────────

// NotTooManyChanges reports whether admins rarely rewrote their employees' logs.
// The criterion fails once admin-modified activities exceed the allowed share.
func (e *CriteriaEvaluator) NotTooManyChanges(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (bool, error) {
	changed, total, limit, err := e.tallyChanges(ctx, repo, companyID, p, true)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return true, nil
	}
	return changed <= limit, nil
}

// tallyChanges counts admin-modified activities among those created in the window.
// With stopEarly the count stops as soon as it exceeds limit.
func (e *CriteriaEvaluator) tallyChanges(ctx context.Context, repo *repository.Repository, companyID int64, p Period, stopEarly bool) (changed, total, limit int, err error) {
	activities, err := repo.Activity.ListCreated(ctx, companyID, p.From(), p.Until())
	if err != nil {
		return 0, 0, 0, fmt.Errorf("list activities: %w", err)
	}
	total = len(activities)
	if total == 0 {
		return 0, 0, 0, nil
	}
	employments, err := repo.Employment.ListByCompany(ctx, companyID, p.Start, p.End)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("list employments: %w", err)
	}
	roster := newAdminRoster(employments, p.Start.Location())

	limit = ceilPercent(total, e.cfg.Changes.MaxChangesPercentage)
	for i := range activities {
		if !roster.modifiedByAdmin(&activities[i]) {
			continue
		}
		changed++
		if stopEarly && changed > limit {
			break
		}
	}
	return changed, total, limit, nil
}

// adminRoster admin rights of a company over time
type adminRoster struct {
	employments []model.Employment
	loc         *time.Location
}

func newAdminRoster(employments []model.Employment, loc *time.Location) *adminRoster {
	admins := make([]model.Employment, 0, len(employments))
	for i := range employments {
		if employments[i].HasAdminRights {
			admins = append(admins, employments[i])
		}
	}
	return &adminRoster{employments: admins, loc: loc}
}

// isAdminAt reports whether userID held admin rights on the day of t
func (r *adminRoster) isAdminAt(userID int64, t time.Time) bool {
	for i := range r.employments {
		if r.employments[i].UserID == userID && r.employments[i].ActiveAt(t.In(r.loc)) {
			return true
		}
	}
	return false
}

// modifiedByAdmin reports whether a revision of a was submitted by an admin other than its owner
func (r *adminRoster) modifiedByAdmin(a *model.Activity) bool {
	for _, v := range a.Versions {
		if v.VersionNumber <= 1 || v.SubmitterID == a.UserID {
			continue
		}
		if r.isAdminAt(v.SubmitterID, v.ReceptionTime) {
			return true
		}
	}
	return false
}

// ────────────────────── validates regularly ──────────────────────

// ValidateRegularly reports whether admins validated ended missions soon enough
func (e *CriteriaEvaluator) ValidateRegularly(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (bool, error) {
	ok, total, err := e.tallyValidation(ctx, repo, companyID, p)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return true, nil
	}
	return ok >= ceilPercent(total, e.cfg.Validation.MinPercentage), nil
}

func (e *CriteriaEvaluator) tallyValidation(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (ok, total int, err error) {
	missions, err := repo.Mission.ListWithActivityEndingIn(ctx, companyID, p.From(), p.Until())
	if err != nil {
		return 0, 0, fmt.Errorf("list missions: %w", err)
	}

	maxDelay := time.Duration(e.cfg.Validation.MaxDelayDays) * 24 * time.Hour
	// missions ending on or after this day are too recent to judge
	recentFrom := p.End.AddDate(0, 0, -(e.cfg.Validation.MaxDelayDays - 1))

	for i := range missions {
		m := &missions[i]
		endTime, ended := missionEndTime(m)
		if !ended || !p.Contains(endTime) {
			continue
		}
		total++

		if !endTime.Before(recentFrom) {
			ok++
			continue
		}
		if v := firstAdminValidation(m); v != nil && v.ReceptionTime.Sub(endTime) <= maxDelay {
			ok++
		}
	}
	return ok, total, nil
}

// missionEndTime latest activity end of a mission every worker has ended.
// ended is false while a worker has no end record or an activity is ongoing.
func missionEndTime(m *model.Mission) (endTime time.Time, ended bool) {
	if len(m.Activities) == 0 {
		return time.Time{}, false
	}
	endedUsers := make(map[int64]struct{}, len(m.Ends))
	for i := range m.Ends {
		endedUsers[m.Ends[i].UserID] = struct{}{}
	}
	for i := range m.Activities {
		a := &m.Activities[i]
		if a.IsDismissed() {
			continue
		}
		if _, ok := endedUsers[a.UserID]; !ok {
			return time.Time{}, false
		}
		if a.EndTime == nil {
			return time.Time{}, false
		}
		if a.EndTime.After(endTime) {
			endTime = *a.EndTime
		}
	}
	return endTime, !endTime.IsZero()
}

func firstAdminValidation(m *model.Mission) *model.MissionValidation {
	var first *model.MissionValidation
	for i := range m.Validations {
		v := &m.Validations[i]
		if !v.IsAdmin {
			continue
		}
		if first == nil || v.ReceptionTime.Before(first.ReceptionTime) {
			first = v
		}
	}
	return first
}

// ────────────────────── logs in real time ──────────────────────

// LogInRealTime reports whether activities were logged close to when they started
func (e *CriteriaEvaluator) LogInRealTime(ctx context.Context, repo *repository.Repository, companyID int64, p Period) (bool, error) {
	tolerance := time.Duration(e.cfg.RealTime.ToleranceMinutes) * time.Minute
	ok, total, err := e.tallyRealTime(ctx, repo, companyID, p, tolerance)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return true, nil
	}
	return ok >= ceilPercent(total, e.cfg.RealTime.MinPercentage), nil
}

// tallyRealTime non-off activities created in the window, and those logged strictly within tolerance
func (e *CriteriaEvaluator) tallyRealTime(ctx context.Context, repo *repository.Repository, companyID int64, p Period, tolerance time.Duration) (ok, total int, err error) {
	activities, err := repo.Activity.ListCreated(ctx, companyID, p.From(), p.Until())
	if err != nil {
		return 0, 0, fmt.Errorf("list activities: %w", err)
	}
	for i := range activities {
		a := &activities[i]
		if a.Type == model.ActivityOff {
			continue
		}
		total++
		if a.CreationTime.Sub(a.StartTime) < tolerance {
			ok++
		}
	}
	return ok, total, nil
}
