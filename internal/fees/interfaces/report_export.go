package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	fees "library-fees/internal/fees/domain"
	"library-fees/internal/fees/infrastructure/csvio"
)

// BuildReportCSV renders a run exactly as the file output.
func BuildReportCSV(run *fees.ReportRun) ([]byte, error) {
	return csvio.EncodeReport(run.Report())
}

// BuildReportPDF renders a late-fee report as a single table.
func BuildReportPDF(run *fees.ReportRun, currency string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Late Fee Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if run.BranchID != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Branch: %s", run.BranchID))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Input: %s", run.InputName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Date format: %s", run.DateFormat))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", run.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d  Patrons: %d", run.RecordCount, run.PatronCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total late fees (%s): %s", currency, fees.FormatAmount(run.TotalFees)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, fees.ColumnPatronID, "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, fees.ColumnLateFees, "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range run.Rows {
		pdf.CellFormat(80, 6, row.PatronID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, row.FormattedLateFees(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a summary sheet and a per-patron sheet.
func BuildReportXLSX(run *fees.ReportRun, currency string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	feesSheet := "late_fees"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(feesSheet); err != nil {
		return nil, err
	}

	summary := [][2]any{
		{"Late Fee Report", nil},
		{"Run", run.ID},
		{"Branch", run.BranchID},
		{"Input", run.InputName},
		{"Date format", string(run.DateFormat)},
		{"Generated", run.CreatedAt.Format(time.RFC3339)},
		{"Records", run.RecordCount},
		{"Patrons", run.PatronCount},
		{"Total late fees", fees.FormatAmount(run.TotalFees)},
		{"Currency", currency},
	}
	for i, pair := range summary {
		row := i + 1
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), pair[0])
		if pair[1] != nil {
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), pair[1])
		}
	}

	_ = f.SetCellValue(feesSheet, "A1", fees.ColumnPatronID)
	_ = f.SetCellValue(feesSheet, "B1", fees.ColumnLateFees)
	for i, item := range run.Rows {
		row := i + 2
		amount, _ := item.LateFees.Round(2).Float64()
		_ = f.SetCellValue(feesSheet, fmt.Sprintf("A%d", row), item.PatronID)
		_ = f.SetCellValue(feesSheet, fmt.Sprintf("B%d", row), amount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
