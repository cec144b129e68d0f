package service

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
)

// ── test fixtures ──

// February 2023 is the window of a run on 2023-03-28
var (
	testRunDay  = time.Date(2023, 3, 28, 0, 0, 0, 0, time.UTC)
	testNow     = time.Date(2023, 3, 28, 12, 0, 0, 0, time.UTC)
	testPeriod  = PreviousMonthPeriod(testRunDay)
	testExpDate = time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC)
)

func testCertificationConfig() *config.CertificationConfig {
	cfg := config.DefaultCertification()
	cfg.Timezone = "UTC"
	cfg.Workers = 4
	return &cfg
}

// fixture builds company data in a mockStore
type fixture struct {
	store  *mockStore
	repo   *repository.Repository
	nextID int64
}

func newFixture() *fixture {
	s := newMockStore()
	return &fixture{store: s, repo: newMockRepository(s), nextID: 100}
}

func (f *fixture) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fixture) company(name, siren string) int64 {
	c := &model.Company{ID: f.id(), Name: name, Siren: siren}
	f.store.companies[c.ID] = c
	return c.ID
}

func (f *fixture) employ(companyID, userID int64, admin bool) *model.Employment {
	e := &model.Employment{
		ID:             f.id(),
		UserID:         userID,
		CompanyID:      companyID,
		StartDate:      time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		HasAdminRights: admin,
	}
	f.store.employments = append(f.store.employments, e)
	return e
}

func (f *fixture) mission(companyID int64, created time.Time) *model.Mission {
	m := &model.Mission{ID: f.id(), CompanyID: companyID, CreationTime: created}
	f.store.missions[m.ID] = m
	return m
}

// activity logs an activity created `lag` after its start, with its first version
func (f *fixture) activity(m *model.Mission, userID int64, typ model.ActivityType, start, end time.Time, lag time.Duration) *model.Activity {
	e := end
	a := &model.Activity{
		ID:           f.id(),
		MissionID:    m.ID,
		UserID:       userID,
		SubmitterID:  userID,
		Type:         typ,
		StartTime:    start,
		EndTime:      &e,
		CreationTime: start.Add(lag),
	}
	a.Versions = []model.ActivityVersion{{
		ID: f.id(), ActivityID: a.ID, VersionNumber: 1, SubmitterID: userID,
		StartTime: start, EndTime: &e, ReceptionTime: a.CreationTime,
	}}
	f.store.activities = append(f.store.activities, a)
	return a
}

// revise appends a revision of a submitted by submitterID at `at`
func (f *fixture) revise(a *model.Activity, submitterID int64, at time.Time) {
	a.Versions = append(a.Versions, model.ActivityVersion{
		ID: f.id(), ActivityID: a.ID, VersionNumber: len(a.Versions) + 1, SubmitterID: submitterID,
		StartTime: a.StartTime, EndTime: a.EndTime, ReceptionTime: at,
	})
}

func (f *fixture) endMission(m *model.Mission, userID int64, at time.Time) {
	m.Ends = append(m.Ends, model.MissionEnd{ID: f.id(), MissionID: m.ID, UserID: userID, SubmitterID: userID, EndTime: at, ReceptionTime: at})
}

func (f *fixture) validate(m *model.Mission, submitterID int64, admin bool, at time.Time) {
	m.Validations = append(m.Validations, model.MissionValidation{
		ID: f.id(), MissionID: m.ID, SubmitterID: submitterID, IsAdmin: admin, ReceptionTime: at,
	})
}

func (f *fixture) alert(userID int64, day time.Time, checkType model.RegulationCheckType, extra string) *model.RegulatoryAlert {
	a := &model.RegulatoryAlert{
		ID:              f.id(),
		UserID:          userID,
		Day:             day,
		SubmitterType:   model.SubmitterTypeEmployee,
		RegulationCheck: &model.RegulationCheck{Type: checkType},
	}
	if extra != "" {
		a.Extra = datatypes.JSON(extra)
	}
	f.store.alerts = append(f.store.alerts, a)
	return a
}

// steadyCompany one driver and one admin; the driver works `days` days of February
// with two activities a day logged 5 minutes late, each mission validated by the admin 2 days later.
func (f *fixture) steadyCompany(name string, days int) (companyID, driverID, adminID int64) {
	companyID = f.company(name, "")
	driverID, adminID = f.id(), f.id()
	f.employ(companyID, driverID, false)
	f.employ(companyID, adminID, true)

	for d := 0; d < days; d++ {
		day := testPeriod.Start.AddDate(0, 0, d)
		m := f.mission(companyID, day.Add(8*time.Hour))
		f.activity(m, driverID, model.ActivityWork, day.Add(8*time.Hour), day.Add(10*time.Hour), 5*time.Minute)
		f.activity(m, driverID, model.ActivityDrive, day.Add(14*time.Hour), day.Add(16*time.Hour), 5*time.Minute)
		f.endMission(m, driverID, day.Add(16*time.Hour))
		f.validate(m, driverID, false, day.Add(17*time.Hour))
		f.validate(m, adminID, true, day.AddDate(0, 0, 2))
	}
	return companyID, driverID, adminID
}

func newTestCertificationService(f *fixture, locker RunLocker) *certificationService {
	svc := NewCertificationService(testCertificationConfig(), f.repo, locker, zap.NewNop()).(*certificationService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func newTestEvaluator() *CriteriaEvaluator {
	return NewCriteriaEvaluator(testCertificationConfig(), zap.NewNop())
}
