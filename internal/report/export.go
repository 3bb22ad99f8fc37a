package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/bandscore/internal/i18n"
	"github.com/pavelanni/bandscore/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or xlsx)", s)
	}
}

// Write renders results in format f.
func Write(ctx context.Context, w io.Writer, f Format, results []model.SubmissionResult) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatXLSX:
		return WriteXLSX(ctx, w, results)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// WriteJSON writes an indented GradingExport document.
func WriteJSON(w io.Writer, results []model.SubmissionResult) error {
	if results == nil {
		results = []model.SubmissionResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model.GradingExport{
		ExportedAt: time.Now().UTC(),
		Results:    results,
	})
}

// WriteXLSX writes a workbook with a summary sheet (one row per submission)
// and a questions sheet (one row per question). Headers and verdicts use
// the localizer in ctx.
func WriteXLSX(ctx context.Context, w io.Writer, results []model.SubmissionResult) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := i18n.T(ctx, "SheetSummary")
	questions := i18n.T(ctx, "SheetQuestions")
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(questions); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	summaryRows := [][]any{headers(ctx,
		"ColSubmission", "ColTest", "ColComponent", "ColCandidate", "ColStatus", "ColSubmittedAt",
		"ColTotal", "ColCorrect", "ColIncorrect", "ColUnanswered", "ColManual", "ColPercentage", "ColBand",
	)}
	questionRows := [][]any{headers(ctx,
		"ColSubmission", "ColQuestion", "ColSection", "ColType", "ColAnswer", "ColAccepted",
		"ColAutomatic", "ColOverride", "ColFinal",
	)}

	for _, r := range results {
		var bandCell any = i18n.Band(ctx, r.Band)
		if r.Band.OK {
			bandCell = r.Band.Value
		}
		summaryRows = append(summaryRows, []any{
			r.SubmissionID, r.TestName, r.Component, r.CandidateName, string(r.Status),
			r.SubmittedAt.Format(time.DateTime),
			r.Total, r.Correct, r.Incorrect, r.Unanswered, r.ManuallyGraded, r.Percentage, bandCell,
		})
		for _, q := range r.Questions {
			questionRows = append(questionRows, []any{
				r.SubmissionID, q.Number, q.Section, string(q.Type), q.Candidate.String(),
				strings.Join(q.Accepted, " / "),
				i18n.Verdict(ctx, q.Automatic), i18n.Grade(ctx, q.Override), i18n.Verdict(ctx, q.Final),
			})
		}
	}

	if err := writeRows(f, summary, summaryRows, bold); err != nil {
		return err
	}
	if err := writeRows(f, questions, questionRows, bold); err != nil {
		return err
	}
	return f.Write(w)
}

func headers(ctx context.Context, ids ...string) []any {
	row := make([]any, len(ids))
	for i, id := range ids {
		row[i] = i18n.T(ctx, id)
	}
	return row
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}
