package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/dto"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/model"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/service"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock CertificationService ──

type mockCertificationService struct {
	scores    *service.CertificationScores
	scoresErr error
	scoredRef time.Time
}

func (m *mockCertificationService) Run(_ context.Context, _ time.Time) (*service.RunSummary, error) {
	return nil, errors.New("not used")
}
func (m *mockCertificationService) CertifyCompany(_ context.Context, _ int64, _ time.Time) (*model.CompanyCertification, error) {
	return nil, errors.New("not used")
}
func (m *mockCertificationService) EligibleCompanies(_ context.Context, _ service.Period) ([]model.Company, error) {
	return nil, errors.New("not used")
}
func (m *mockCertificationService) ScoreCompany(_ context.Context, _ int64, ref time.Time) (*service.CertificationScores, error) {
	m.scoredRef = ref
	return m.scores, m.scoresErr
}

// ── Mock CertificationQueryService ──

type mockQueryService struct {
	certified    []service.CertifiedCompany
	certifiedErr error
	gotSiren     string
	status       *service.CompanyCertificationStatus
	statusErr    error
	list         []model.CompanyCertification
	listErr      error
	listDay      time.Time
}

func (m *mockQueryService) IsCompanyCertified(_ context.Context, siren string, _ time.Time) ([]service.CertifiedCompany, error) {
	m.gotSiren = siren
	return m.certified, m.certifiedErr
}
func (m *mockQueryService) GetCompanyStatus(_ context.Context, _ int64, _ time.Time) (*service.CompanyCertificationStatus, error) {
	return m.status, m.statusErr
}
func (m *mockQueryService) ListByAttributionDate(_ context.Context, day time.Time) ([]model.CompanyCertification, error) {
	m.listDay = day
	return m.list, m.listErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportCertifications(_ context.Context, _ time.Time) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

var fixedNow = time.Date(2023, 3, 28, 10, 0, 0, 0, time.UTC)

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("role", "admin")
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// decodeData re-decodes the envelope's data into v
func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("invalid data payload: %v", err)
	}
}

func newTestCertificationHandler(cert *mockCertificationService, query *mockQueryService) *CertificationHandler {
	h := NewCertificationHandler(cert, query, time.UTC)
	h.now = func() time.Time { return fixedNow }
	return h
}

func serve(r *gin.Engine, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func certificationRouter(h *CertificationHandler) *gin.Engine {
	r := gin.New()
	r.POST("/companies/is_company_certified", h.IsCompanyCertified)
	r.GET("/companies/:id/certification", h.GetCompanyStatus)
	r.GET("/companies/:id/certification/scores", h.GetCompanyScores)
	r.GET("/certifications", h.ListCertifications)
	return r
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ═══════════════════════════════════════════════════════════
// CertificationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCertificationHandler_IsCompanyCertified_Success(t *testing.T) {
	exp := day(2023, 8, 31)
	query := &mockQueryService{
		certified: []service.CertifiedCompany{
			{
				Company:       model.Company{ID: 1, Name: "Transports A", Siren: "123456789"},
				Certification: &model.CompanyCertification{ID: "c1", CompanyID: 1, AttributionDate: day(2023, 3, 1), ExpirationDate: &exp},
			},
			{Company: model.Company{ID: 2, Name: "Transports A Sud", Siren: "123456789"}},
		},
	}
	r := certificationRouter(newTestCertificationHandler(&mockCertificationService{}, query))

	w := serve(r, "POST", "/companies/is_company_certified", jsonBody(dto.IsCompanyCertifiedRequest{Siren: "123456789"}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if query.gotSiren != "123456789" {
		t.Errorf("service received siren %q", query.gotSiren)
	}
	var data struct {
		List []dto.CompanyCertifiedResponse `json:"list"`
	}
	decodeData(t, w, &data)
	if len(data.List) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(data.List))
	}
	if !data.List[0].IsCertified || data.List[0].ExpirationDate == nil || *data.List[0].ExpirationDate != "2023-08-31" {
		t.Errorf("unexpected first company %+v", data.List[0])
	}
	if data.List[1].IsCertified || data.List[1].ExpirationDate != nil {
		t.Errorf("second company should not be certified: %+v", data.List[1])
	}
}

func TestCertificationHandler_IsCompanyCertified_BadSiren(t *testing.T) {
	r := certificationRouter(newTestCertificationHandler(&mockCertificationService{}, &mockQueryService{}))

	for _, body := range []io.Reader{
		jsonBody(dto.IsCompanyCertifiedRequest{Siren: "1234"}),
		jsonBody(dto.IsCompanyCertifiedRequest{Siren: "12345678A"}),
		bytes.NewReader([]byte("invalid json")),
	} {
		w := serve(r, "POST", "/companies/is_company_certified", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	}
}

func TestCertificationHandler_IsCompanyCertified_NotFound(t *testing.T) {
	query := &mockQueryService{certifiedErr: service.ErrCompanyNotFound}
	r := certificationRouter(newTestCertificationHandler(&mockCertificationService{}, query))

	w := serve(r, "POST", "/companies/is_company_certified", jsonBody(dto.IsCompanyCertifiedRequest{Siren: "123456789"}))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20001 {
		t.Errorf("expected error code 20001, got %d", resp.Code)
	}
}

func TestCertificationHandler_GetCompanyStatus_Success(t *testing.T) {
	exp := day(2023, 8, 31)
	start := day(2022, 10, 1)
	query := &mockQueryService{
		status: &service.CompanyCertificationStatus{
			CompanyID:                    7,
			IsCertified:                  true,
			LastDayCertified:             &exp,
			StartLastCertificationPeriod: &start,
			Current: &model.CompanyCertification{
				ID: "c1", CompanyID: 7, AttributionDate: day(2023, 3, 1), ExpirationDate: &exp,
				BeActive: true, BeCompliant: true, NotTooManyChanges: true, ValidateRegularly: true, LogInRealTime: true,
			},
		},
	}
	r := certificationRouter(newTestCertificationHandler(&mockCertificationService{}, query))

	w := serve(r, "GET", "/companies/7/certification", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var data dto.CompanyCertificationStatusResponse
	decodeData(t, w, &data)
	if !data.IsCertified || *data.LastDayCertified != "2023-08-31" || *data.StartLastCertificationPeriod != "2022-10-01" {
		t.Errorf("unexpected status %+v", data)
	}
	if data.Current == nil || !data.Current.Certified || data.Current.AttributionDate != "2023-03-01" {
		t.Errorf("unexpected current certification %+v", data.Current)
	}
}

func TestCertificationHandler_GetCompanyStatus_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
	}{
		{"invalid id", "/companies/abc/certification", nil, http.StatusBadRequest},
		{"negative id", "/companies/-3/certification", nil, http.StatusBadRequest},
		{"not found", "/companies/7/certification", service.ErrCompanyNotFound, http.StatusNotFound},
		{"storage failure", "/companies/7/certification", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &mockQueryService{statusErr: tt.err}
			r := certificationRouter(newTestCertificationHandler(&mockCertificationService{}, query))

			w := serve(r, "GET", tt.path, nil)
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestCertificationHandler_GetCompanyScores(t *testing.T) {
	cert := &mockCertificationService{
		scores: &service.CertificationScores{
			CompanyID:       7,
			Period:          service.PreviousMonthPeriod(day(2023, 3, 1)),
			Active:          service.CriterionScore{Compliant: 1, Total: 1, Percentage: 100, OK: true},
			ComplianceScore: 5,
			Compliance: []service.ComplianceCategory{
				{Type: model.CheckMaximumWorkDayTime, Breaches: 3, Allowed: 2, OK: false},
			},
			RealTime: service.CriterionScore{Compliant: 4, Total: 5, Percentage: 80, OK: true},
		},
	}
	r := certificationRouter(newTestCertificationHandler(cert, &mockQueryService{}))

	w := serve(r, "GET", "/companies/7/certification/scores?date=2023-03-01", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !cert.scoredRef.Equal(day(2023, 3, 1)) {
		t.Errorf("service received ref %v", cert.scoredRef)
	}
	var data dto.CertificationScoresResponse
	decodeData(t, w, &data)
	if data.PeriodStart != "2023-02-01" || data.PeriodEnd != "2023-02-28" {
		t.Errorf("unexpected period %s..%s", data.PeriodStart, data.PeriodEnd)
	}
	if data.ComplianceScore != 5 || len(data.Compliance) != 1 || data.Compliance[0].Type != "maximumWorkDayTime" {
		t.Errorf("unexpected compliance %+v", data)
	}
	if data.RealTime.Percentage != 80 || !data.RealTime.OK {
		t.Errorf("unexpected real time score %+v", data.RealTime)
	}
}

func TestCertificationHandler_GetCompanyScores_DefaultsToToday(t *testing.T) {
	cert := &mockCertificationService{scores: &service.CertificationScores{CompanyID: 7}}
	r := certificationRouter(newTestCertificationHandler(cert, &mockQueryService{}))

	w := serve(r, "GET", "/companies/7/certification/scores", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !cert.scoredRef.Equal(day(2023, 3, 28)) {
		t.Errorf("expected today as reference, got %v", cert.scoredRef)
	}
}

func TestCertificationHandler_GetCompanyScores_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
		wantErr  int
	}{
		{"bad date", "/companies/7/certification/scores?date=03-2023", nil, http.StatusBadRequest, 10001},
		{"future date", "/companies/7/certification/scores?date=2024-01-01", service.ErrInvalidAttributionDate, http.StatusBadRequest, 20002},
		{"unknown company", "/companies/7/certification/scores", service.ErrCompanyNotFound, http.StatusNotFound, 20001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := &mockCertificationService{scoresErr: tt.err}
			r := certificationRouter(newTestCertificationHandler(cert, &mockQueryService{}))

			w := serve(r, "GET", tt.path, nil)
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantErr {
				t.Errorf("expected error code %d, got %d", tt.wantErr, resp.Code)
			}
		})
	}
}

func TestCertificationHandler_ListCertifications(t *testing.T) {
	exp := day(2023, 8, 31)
	query := &mockQueryService{
		list: []model.CompanyCertification{
			{ID: "c1", CompanyID: 1, AttributionDate: day(2023, 3, 1), ExpirationDate: &exp, Company: &model.Company{ID: 1, Name: "A", Siren: "123456789"}},
			{ID: "c2", CompanyID: 2, AttributionDate: day(2023, 3, 1), BeActive: true},
		},
	}
	r := certificationRouter(newTestCertificationHandler(&mockCertificationService{}, query))

	w := serve(r, "GET", "/certifications?attribution_date=2023-03-01", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !query.listDay.Equal(day(2023, 3, 1)) {
		t.Errorf("service received day %v", query.listDay)
	}
	var data struct {
		List      []dto.CertificationResponse `json:"list"`
		Total     int                         `json:"total"`
		Certified int                         `json:"certified"`
	}
	decodeData(t, w, &data)
	if data.Total != 2 || data.Certified != 1 {
		t.Errorf("total=%d certified=%d", data.Total, data.Certified)
	}
	if data.List[0].CompanyName != "A" || data.List[1].ExpirationDate != nil {
		t.Errorf("unexpected rows %+v", data.List)
	}
}

func TestCertificationHandler_ListCertifications_MissingDate(t *testing.T) {
	r := certificationRouter(newTestCertificationHandler(&mockCertificationService{}, &mockQueryService{}))

	w := serve(r, "GET", "/certifications", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func exportRouter(h *ExportHandler, authenticated bool) *gin.Engine {
	r := gin.New()
	if authenticated {
		r.Use(func(c *gin.Context) { setAuth(c); c.Next() })
	}
	r.GET("/export/certifications", h.ExportCertifications)
	return r
}

func TestExportHandler_ExportCertifications_Success(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("PK-fake-xlsx"),
		filename: "certifications_2023-03-01.xlsx",
	}
	r := exportRouter(NewExportHandler(mock, time.UTC, zap.NewNop()), true)

	w := serve(r, "GET", "/export/certifications?attribution_date=2023-03-01", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename*=UTF-8''certifications_2023-03-01.xlsx" {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if w.Body.String() != "PK-fake-xlsx" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestExportHandler_ExportCertifications_Errors(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		err           error
		authenticated bool
		wantCode      int
	}{
		{"missing date", "/export/certifications", nil, true, http.StatusBadRequest},
		{"no rows", "/export/certifications?attribution_date=2023-03-01", service.ErrExportNoCertifications, true, http.StatusNotFound},
		{"generation failure", "/export/certifications?attribution_date=2023-03-01", service.ErrExportGenerateFail, true, http.StatusInternalServerError},
		{"no user in context", "/export/certifications?attribution_date=2023-03-01", nil, false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockExportService{err: tt.err}
			r := exportRouter(NewExportHandler(mock, time.UTC, zap.NewNop()), tt.authenticated)

			w := serve(r, "GET", tt.path, nil)
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}
