package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
)

// ── in-memory store shared by the mock repositories ──
//
// Every access goes through mu: the certification runner calls the
// repositories from several goroutines.

type mockStore struct {
	mu sync.Mutex

	companies   map[int64]*model.Company
	employments []*model.Employment
	missions    map[int64]*model.Mission
	activities  []*model.Activity
	alerts      []*model.RegulatoryAlert
	certs       map[string]*model.CompanyCertification

	// fault injection
	eligibleErr  error
	deleteAllErr error
	createErr    map[int64]error
	transactions int
}

func newMockStore() *mockStore {
	return &mockStore{
		companies: make(map[int64]*model.Company),
		missions:  make(map[int64]*model.Mission),
		certs:     make(map[string]*model.CompanyCertification),
		createErr: make(map[int64]error),
	}
}

func (s *mockStore) nextCertID() string {
	return fmt.Sprintf("cert-%d", len(s.certs)+1)
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

// newMockRepository wires every mock repository on top of s
func newMockRepository(s *mockStore) *repository.Repository {
	repo := &repository.Repository{
		Company:       &mockCompanyRepo{s: s},
		Employment:    &mockEmploymentRepo{s: s},
		Mission:       &mockMissionRepo{s: s},
		Activity:      &mockActivityRepo{s: s},
		Alert:         &mockAlertRepo{s: s},
		Certification: &mockCertificationRepo{s: s},
	}
	repo.Tx = &mockTransactor{s: s, repo: repo}
	return repo
}

// ── Mock Transactor ──

// mockTransactor runs fn on the same repository; there is no rollback.
type mockTransactor struct {
	s    *mockStore
	repo *repository.Repository
}

func (m *mockTransactor) Transaction(_ context.Context, fn func(repo *repository.Repository) error) error {
	m.s.mu.Lock()
	m.s.transactions++
	m.s.mu.Unlock()
	return fn(m.repo)
}

// ── Mock CompanyRepository ──

type mockCompanyRepo struct {
	s *mockStore
}

func (m *mockCompanyRepo) GetByID(_ context.Context, id int64) (*model.Company, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c, ok := m.s.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCompanyRepo) ListBySiren(_ context.Context, siren string) ([]model.Company, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Company
	for _, c := range m.s.companies {
		if c.Siren == siren {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCompanyRepo) ListEligible(_ context.Context, from, to time.Time) ([]model.Company, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.eligibleErr != nil {
		return nil, m.s.eligibleErr
	}
	ids := make(map[int64]bool)
	for _, a := range m.s.activities {
		if a.IsDismissed() {
			continue
		}
		mission := m.s.missions[a.MissionID]
		if mission.CreationTime.Before(from) || !mission.CreationTime.Before(to) {
			continue
		}
		ids[mission.CompanyID] = true
	}
	var result []model.Company
	for id := range ids {
		result = append(result, *m.s.companies[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ── Mock EmploymentRepository ──

type mockEmploymentRepo struct {
	s *mockStore
}

func (m *mockEmploymentRepo) ListByCompany(_ context.Context, companyID int64, startDay, endDay time.Time) ([]model.Employment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Employment
	for _, e := range m.s.employments {
		if e.CompanyID != companyID || e.IsDismissed() {
			continue
		}
		if dayKey(e.StartDate) > dayKey(endDay) {
			continue
		}
		if e.EndDate != nil && dayKey(*e.EndDate) < dayKey(startDay) {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

// ── Mock ActivityRepository ──

type mockActivityRepo struct {
	s *mockStore
}

// companyActivities non-dismissed activities of the company; caller holds mu
func (m *mockActivityRepo) companyActivities(companyID int64) []*model.Activity {
	var result []*model.Activity
	for _, a := range m.s.activities {
		if a.IsDismissed() || m.s.missions[a.MissionID].CompanyID != companyID {
			continue
		}
		result = append(result, a)
	}
	return result
}

func overlaps(a *model.Activity, from, to time.Time) bool {
	return a.StartTime.Before(to) && (a.EndTime == nil || a.EndTime.After(from))
}

func (m *mockActivityRepo) ListOverlapping(_ context.Context, companyID int64, from, to time.Time) ([]model.Activity, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Activity
	for _, a := range m.companyActivities(companyID) {
		if overlaps(a, from, to) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockActivityRepo) ListCreated(_ context.Context, companyID int64, from, to time.Time) ([]model.Activity, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Activity
	for _, a := range m.companyActivities(companyID) {
		if !a.CreationTime.Before(from) && a.CreationTime.Before(to) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockActivityRepo) CountNonOff(_ context.Context, companyID int64, from, to time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, a := range m.companyActivities(companyID) {
		if a.Type != model.ActivityOff && overlaps(a, from, to) {
			n++
		}
	}
	return n, nil
}

// ── Mock MissionRepository ──

type mockMissionRepo struct {
	s *mockStore
}

func (m *mockMissionRepo) ListWithActivityEndingIn(_ context.Context, companyID int64, from, to time.Time) ([]model.Mission, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	byMission := make(map[int64][]model.Activity)
	matched := make(map[int64]bool)
	for _, a := range m.s.activities {
		if a.IsDismissed() || m.s.missions[a.MissionID].CompanyID != companyID {
			continue
		}
		byMission[a.MissionID] = append(byMission[a.MissionID], *a)
		if a.EndTime != nil && !a.EndTime.Before(from) && a.EndTime.Before(to) {
			matched[a.MissionID] = true
		}
	}

	var result []model.Mission
	for id := range matched {
		mission := *m.s.missions[id]
		mission.Activities = byMission[id]
		result = append(result, mission)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ── Mock RegulatoryAlertRepository ──

type mockAlertRepo struct {
	s *mockStore
}

func (m *mockAlertRepo) ListByUsers(_ context.Context, userIDs []int64, startDay, endDay time.Time) ([]model.RegulatoryAlert, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	users := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	var result []model.RegulatoryAlert
	for _, a := range m.s.alerts {
		if !users[a.UserID] || a.SubmitterType != model.SubmitterTypeEmployee {
			continue
		}
		if d := dayKey(a.Day); d < dayKey(startDay) || d > dayKey(endDay) {
			continue
		}
		result = append(result, *a)
	}
	return result, nil
}

// ── Mock CertificationRepository ──

type mockCertificationRepo struct {
	s *mockStore
}

func (m *mockCertificationRepo) Create(_ context.Context, cert *model.CompanyCertification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.createErr[cert.CompanyID]; err != nil {
		return err
	}
	for _, c := range m.s.certs {
		if c.CompanyID == cert.CompanyID && dayKey(c.AttributionDate) == dayKey(cert.AttributionDate) {
			return fmt.Errorf("duplicate key value violates unique constraint")
		}
	}
	cp := *cert
	m.s.certs[cert.ID] = &cp
	return nil
}

func (m *mockCertificationRepo) DeleteByAttributionDate(_ context.Context, day time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.deleteAllErr != nil {
		return 0, m.s.deleteAllErr
	}
	var n int64
	for id, c := range m.s.certs {
		if dayKey(c.AttributionDate) == dayKey(day) {
			delete(m.s.certs, id)
			n++
		}
	}
	return n, nil
}

func (m *mockCertificationRepo) DeleteByCompanyAndDate(_ context.Context, companyID int64, day time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, c := range m.s.certs {
		if c.CompanyID == companyID && dayKey(c.AttributionDate) == dayKey(day) {
			delete(m.s.certs, id)
		}
	}
	return nil
}

func (m *mockCertificationRepo) ListByCompanies(_ context.Context, companyIDs []int64) ([]model.CompanyCertification, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ids := make(map[int64]bool, len(companyIDs))
	for _, id := range companyIDs {
		ids[id] = true
	}
	var result []model.CompanyCertification
	for _, c := range m.s.certs {
		if ids[c.CompanyID] {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].AttributionDate.Equal(result[j].AttributionDate) {
			return result[i].AttributionDate.Before(result[j].AttributionDate)
		}
		return result[i].CompanyID < result[j].CompanyID
	})
	return result, nil
}

func (m *mockCertificationRepo) ListByAttributionDate(_ context.Context, day time.Time) ([]model.CompanyCertification, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.CompanyCertification
	for _, c := range m.s.certs {
		if dayKey(c.AttributionDate) != dayKey(day) {
			continue
		}
		cp := *c
		if company, ok := m.s.companies[c.CompanyID]; ok {
			cc := *company
			cp.Company = &cc
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CompanyID < result[j].CompanyID })
	return result, nil
}
