// Package reports renders the run output as an xlsx workbook with a Summary
// sheet and a Warnings sheet.
package reports

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/username/taxgains/src/models"
	"github.com/username/taxgains/src/processors"
)

const (
	summarySheet  = "Summary"
	warningsSheet = "Warnings"
)

// Writer builds report workbooks. reportingCurrency only affects column
// labels; the amounts are converted upstream.
type Writer struct {
	reportingCurrency string
}

func NewWriter(reportingCurrency string) *Writer {
	return &Writer{reportingCurrency: reportingCurrency}
}

// Write renders the workbook to w, with one row per summary line, a grand
// total row, and one row per warning.
func (wr *Writer) Write(w io.Writer, rows []models.SummaryRow, warnings []models.Warning) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(warningsSheet); err != nil {
		return fmt.Errorf("failed to create warnings sheet: %w", err)
	}

	header := []interface{}{
		"Account", "Symbol", "Name", "Currency",
		"Total Proceeds", "Total Cost Basis", "Total Gain", "Estimated Tax",
		"FX Rate (" + wr.reportingCurrency + ")",
		"Total Gain (" + wr.reportingCurrency + ")",
		"Estimated Tax (" + wr.reportingCurrency + ")",
		"Cost Missing",
	}
	if err := setRow(f, summarySheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+2, summaryCells(row)); err != nil {
			return err
		}
	}
	total := processors.Totals(rows)
	if err := setRow(f, summarySheet, len(rows)+2, summaryCells(total)); err != nil {
		return err
	}

	if err := setRow(f, warningsSheet, 1, []interface{}{"Category", "Account", "Symbol", "Detail"}); err != nil {
		return err
	}
	for i, warning := range warnings {
		cells := []interface{}{string(warning.Category), warning.AccountID, warning.Symbol, warning.Detail}
		if err := setRow(f, warningsSheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func summaryCells(row models.SummaryRow) []interface{} {
	costMissing := ""
	if row.CostBasisMissing {
		costMissing = "YES"
	}
	return []interface{}{
		row.AccountID, row.Symbol, row.Name, row.Currency,
		decCell(row.TotalProceeds), decCell(row.TotalCostBasis),
		decCell(row.TotalGain), decCell(row.EstimatedTax),
		decPtrCell(row.FXRate), decPtrCell(row.TotalGainReporting),
		decPtrCell(row.EstimatedTaxReporting),
		costMissing,
	}
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("invalid row coordinate %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}

func decCell(d decimal.Decimal) interface{} {
	v, _ := d.Float64()
	return v
}

// decPtrCell leaves the cell blank for unset converted amounts.
func decPtrCell(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return decCell(*d)
}
