package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/service"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── run summary ──

type failureJSON struct {
	CompanyID int64  `json:"company_id"`
	Criterion string `json:"criterion,omitempty"`
	Error     string `json:"error"`
}

type summaryOutput struct {
	AttributionDate string        `json:"attribution_date"`
	PeriodStart     string        `json:"period_start"`
	PeriodEnd       string        `json:"period_end"`
	Deleted         int64         `json:"deleted"`
	Eligible        int           `json:"eligible"`
	Certified       int           `json:"certified"`
	Failed          int           `json:"failed"`
	Skipped         int           `json:"skipped"`
	DurationMS      int64         `json:"duration_ms"`
	Failures        []failureJSON `json:"failures"`
}

func summaryJSON(s *service.RunSummary) summaryOutput {
	out := summaryOutput{
		AttributionDate: s.AttributionDate.Format(dateLayout),
		PeriodStart:     s.Period.Start.Format(dateLayout),
		PeriodEnd:       s.Period.End.Format(dateLayout),
		Deleted:         s.Deleted,
		Eligible:        s.Eligible,
		Certified:       s.Certified,
		Failed:          len(s.Failures),
		Skipped:         s.Skipped,
		DurationMS:      s.Duration.Milliseconds(),
		Failures:        make([]failureJSON, 0, len(s.Failures)),
	}
	for _, f := range s.Failures {
		out.Failures = append(out.Failures, toFailureJSON(f))
	}
	return out
}

func toFailureJSON(o service.CompanyOutcome) failureJSON {
	f := failureJSON{CompanyID: o.CompanyID}
	if o.Err != nil {
		f.Error = o.Err.Error()
	}
	var evalErr *service.EvaluationError
	if errors.As(o.Err, &evalErr) {
		f.Criterion = string(evalErr.Criterion)
		f.Error = evalErr.Err.Error()
	}
	return f
}

func renderSummary(w io.Writer, s *service.RunSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Certification " + s.AttributionDate.Format(dateLayout))
	tw.AppendRows([]table.Row{
		{"Period", s.Period.Start.Format(dateLayout) + " .. " + s.Period.End.Format(dateLayout)},
		{"Previous rows replaced", s.Deleted},
		{"Eligible companies", s.Eligible},
		{"Certified", s.Certified},
		{"Failed", len(s.Failures)},
		{"Skipped", s.Skipped},
		{"Duration", s.Duration.Round(time.Millisecond)},
	})
	tw.Render()

	if len(s.Failures) == 0 {
		return
	}
	fw := table.NewWriter()
	fw.SetOutputMirror(w)
	fw.SetTitle("Failures")
	fw.AppendHeader(table.Row{"Company", "Criterion", "Error"})
	for _, o := range s.Failures {
		f := toFailureJSON(o)
		fw.AppendRow(table.Row{f.CompanyID, f.Criterion, f.Error})
	}
	fw.Render()
}

// ── scores ──

func renderScores(w io.Writer, s *service.CertificationScores) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(fmt.Sprintf("Company %d, %s .. %s", s.CompanyID,
		s.Period.Start.Format(dateLayout), s.Period.End.Format(dateLayout)))
	tw.AppendHeader(table.Row{"Criterion", "Compliant", "Total", "Percentage", "OK"})
	for _, row := range []struct {
		name  string
		score service.CriterionScore
	}{
		{"Active drivers", s.Active},
		{"Unchanged activities", s.Changes},
		{"Validated missions", s.Validation},
		{"Real-time activities", s.RealTime},
	} {
		tw.AppendRow(table.Row{row.name, row.score.Compliant, row.score.Total,
			fmt.Sprintf("%.1f%%", row.score.Percentage), yesNo(row.score.OK)})
	}
	tw.AppendFooter(table.Row{"Compliance score", fmt.Sprintf("%d/%d", s.ComplianceScore, len(s.Compliance)), "", "", ""})
	tw.Render()

	cw := table.NewWriter()
	cw.SetOutputMirror(w)
	cw.SetTitle("Regulatory alerts")
	cw.AppendHeader(table.Row{"Check", "Breaches", "Allowed", "OK"})
	for _, c := range s.Compliance {
		cw.AppendRow(table.Row{c.Type, c.Breaches, c.Allowed, yesNo(c.OK)})
	}
	cw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
