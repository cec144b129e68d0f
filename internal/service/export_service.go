package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
)

// ── export module errors ──

var (
	ErrExportNoCertifications = errors.New("no certification for this attribution date")
	ErrExportGenerateFail     = errors.New("failed to generate Excel file")
)

const (
	exportSheetCertifications = "Certifications"
	exportSheetSummary        = "Summary"
)

// ExportService certification export.
// The workbook is returned as a buffer; the handler sets the response headers.
type ExportService interface {
	// ExportCertifications one row per company evaluated on attributionDate
	ExportCertifications(ctx context.Context, attributionDate time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService creates an ExportService
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportCertifications: run results as an Excel workbook
// ═══════════════════════════════════════════════════════════
//
// Sheets:
//   - "Certifications": company, SIREN, the five criteria, certified, expiration
//   - "Summary": evaluated count, certified count, certification rate

func (s *exportService) ExportCertifications(ctx context.Context, attributionDate time.Time) (*bytes.Buffer, string, error) {
	dayKey := attributionDate.Format("2006-01-02")

	// 1. rows of the run
	certs, err := s.repo.Certification.ListByAttributionDate(ctx, attributionDate)
	if err != nil {
		s.logger.Error("Failed to list certifications for export", zap.String("attribution_date", dayKey), zap.Error(err))
		return nil, "", err
	}
	if len(certs) == 0 {
		return nil, "", ErrExportNoCertifications
	}

	// 2. workbook
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(exportSheetCertifications)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(exportSheetCertifications, "A", "A", 32)
	f.SetColWidth(exportSheetCertifications, "B", "B", 14)
	f.SetColWidth(exportSheetCertifications, "C", "H", 16)
	f.SetColWidth(exportSheetCertifications, "I", "I", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#000091"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// title
	f.SetCellValue(exportSheetCertifications, "A1", fmt.Sprintf("Certification %s", dayKey))
	f.MergeCell(exportSheetCertifications, "A1", "I1")
	f.SetCellStyle(exportSheetCertifications, "A1", "A1", headerStyle)

	headers := []string{
		"Company", "SIREN", "Active", "Compliant", "Few changes",
		"Validates regularly", "Logs in real time", "Certified", "Expiration",
	}
	for i, h := range headers {
		f.SetCellValue(exportSheetCertifications, cell(colName(i), 2), h)
	}
	f.SetCellStyle(exportSheetCertifications, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	certified := 0
	row := 3
	for i := range certs {
		c := &certs[i]
		name, siren := fmt.Sprintf("#%d", c.CompanyID), ""
		if c.Company != nil {
			name, siren = c.Company.Name, c.Company.Siren
		}
		expiration := "-"
		if c.Certified() {
			certified++
			expiration = c.ExpirationDate.Format("2006-01-02")
		}

		values := []interface{}{
			name, siren,
			yesNo(c.BeActive), yesNo(c.BeCompliant), yesNo(c.NotTooManyChanges),
			yesNo(c.ValidateRegularly), yesNo(c.LogInRealTime),
			yesNo(c.Certified()), expiration,
		}
		for col, v := range values {
			f.SetCellValue(exportSheetCertifications, cell(colName(col), row), v)
		}
		row++
	}

	// 3. summary sheet
	f.NewSheet(exportSheetSummary)
	f.SetColWidth(exportSheetSummary, "A", "A", 24)
	f.SetColWidth(exportSheetSummary, "B", "B", 14)
	summary := [][]interface{}{
		{"Attribution date", dayKey},
		{"Companies evaluated", len(certs)},
		{"Companies certified", certified},
		{"Certification rate", fmt.Sprintf("%.1f%%", float64(certified)*100/float64(len(certs)))},
	}
	for i, line := range summary {
		f.SetCellValue(exportSheetSummary, cell("A", i+1), line[0])
		f.SetCellValue(exportSheetSummary, cell("B", i+1), line[1])
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("Failed to write Excel file", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("certifications_%s.xlsx", dayKey)
	return buf, filename, nil
}

// ── helpers ──

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
