// Package export renders HR reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	applicantsSheet = "Applicants"
)

// ApplicantRow is one line of the applicants report.
type ApplicantRow struct {
	Username  string
	Email     string
	ResumeURL string
	AppliedAt time.Time
	Score     string
	Feedback  string
}

// JobSummary heads the report.
type JobSummary struct {
	Title   string
	Company string
	Closes  time.Time
}

var applicantHeaders = []string{"Name", "Email", "Resume", "Applied At", "Score", "Feedback"}

// Applicants builds an .xlsx workbook listing the applicants of a job.
func Applicants(job JobSummary, rows []ApplicantRow, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(applicantsSheet); err != nil {
		return nil, err
	}

	if err := writeSummary(f, job, len(rows), generated); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeApplicants(f, rows); err != nil {
		return nil, fmt.Errorf("failed to create applicants sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, job JobSummary, count int, generated time.Time) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 45); err != nil {
		return err
	}

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	pairs := [][2]any{
		{"Job Title:", job.Title},
		{"Company:", job.Company},
		{"Closes:", job.Closes.Format("2006-01-02")},
		{"Applicants:", count},
		{"Generated:", generated.Format("2006-01-02 15:04:05")},
	}
	for i, p := range pairs {
		row := i + 1
		a := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(summarySheet, a, p[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, a, a, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), p[1]); err != nil {
			return err
		}
	}
	return nil
}

func writeApplicants(f *excelize.File, rows []ApplicantRow) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	widths := []float64{22, 30, 40, 20, 30, 60}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(applicantsSheet, col, col, w); err != nil {
			return err
		}
	}

	for i, h := range applicantHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(applicantsSheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(applicantHeaders), 1)
	if err := f.SetCellStyle(applicantsSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, r := range rows {
		values := []any{r.Username, r.Email, r.ResumeURL, r.AppliedAt.Format("2006-01-02 15:04"), r.Score, r.Feedback}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(applicantsSheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
