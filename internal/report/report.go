// Package report writes batch extraction summaries as XLSX workbooks.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/semantic"
)

const (
	// SummarySheet lists one row per card.
	SummarySheet = "Cards"
	// IssuesSheet lists every validation issue and review flag.
	IssuesSheet = "Review"
)

var summaryHeaders = []string{
	"File",
	"Run ID",
	"Success",
	"Border Strategy",
	"OCR Engine",
	"Certificate No.",
	"Sex",
	"Full Name",
	"Date of Birth",
	"Birth Place",
	"Permanent Address",
	"Missing Fields",
	"Total (s)",
	"Error",
}

// Build returns the workbook for items. A nil Result is written as a
// failed row.
func Build(items []pipeline.BatchItem) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(IssuesSheet); err != nil {
		return nil, err
	}

	if err := writeRows(f, items); err != nil {
		_ = f.Close()
		return nil, err
	}

	_ = f.SetColWidth(SummarySheet, "A", "A", 40)
	_ = f.SetColWidth(SummarySheet, "B", "B", 38)
	_ = f.SetColWidth(SummarySheet, "C", "E", 16)
	_ = f.SetColWidth(SummarySheet, "F", "J", 22)
	_ = f.SetColWidth(SummarySheet, "K", "L", 48)
	_ = f.SetColWidth(SummarySheet, "N", "N", 48)
	_ = f.SetColWidth(IssuesSheet, "A", "A", 40)
	_ = f.SetColWidth(IssuesSheet, "D", "D", 60)
	_ = f.SetPanes(SummarySheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}

func writeRows(f *excelize.File, items []pipeline.BatchItem) error {
	if err := writeRow(f, SummarySheet, 1, toAny(summaryHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, IssuesSheet, 1, []any{"File", "Field", "Severity", "Message"}); err != nil {
		return err
	}

	issueRow := 2
	for i, it := range items {
		if err := writeRow(f, SummarySheet, i+2, summaryRow(it)); err != nil {
			return err
		}
		if it.Result == nil {
			continue
		}
		for _, is := range it.Result.ValidationIssues {
			if err := writeRow(f, IssuesSheet, issueRow, []any{it.Path, is.Field, string(is.Severity), is.Message}); err != nil {
				return err
			}
			issueRow++
		}
		for _, flag := range it.Result.FlagsForReview {
			if err := writeRow(f, IssuesSheet, issueRow, []any{it.Path, "", "review", flag}); err != nil {
				return err
			}
			issueRow++
		}
	}
	return nil
}

func summaryRow(it pipeline.BatchItem) []any {
	res := it.Result
	if res == nil {
		row := make([]any, len(summaryHeaders))
		row[0], row[2], row[len(row)-1] = it.Path, false, "no result"
		return row
	}
	var strategy, engine string
	if res.WarpMetadata != nil {
		strategy = string(res.WarpMetadata.Strategy)
	}
	if res.LayoutSummary != nil {
		engine = res.LayoutSummary.Engine
	}
	var missing []string
	for _, name := range semantic.ExpectedFields {
		if _, ok := res.Fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return []any{
		it.Path,
		res.RunID,
		res.Success,
		strategy,
		engine,
		res.FieldText(semantic.FieldCertificateNumber),
		res.FieldText(semantic.FieldSex),
		res.FieldText(semantic.FieldFullName),
		res.FieldText(semantic.FieldDateOfBirth),
		res.FieldText(semantic.FieldBirthPlace),
		res.FieldText(semantic.FieldPermanentAddress),
		strings.Join(missing, ", "),
		res.Timing["total_s"],
		res.Error,
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("write row %d of %s: %w", row, sheet, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// WriteFile builds the workbook and saves it to path.
func WriteFile(path string, items []pipeline.BatchItem) error {
	start := time.Now()
	f, err := Build(items)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // report is meant to be shared
		return fmt.Errorf("save report: %w", err)
	}
	slog.Info("batch report written", "path", path, "rows", len(items), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
