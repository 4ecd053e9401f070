package export

import (
	"context"
	"fmt"

	sheets "google.golang.org/api/sheets/v4"

	"github.com/rafhmansano/finpro/internal/domain"
)

const historySheet = "HISTORY"

// historyHeader names the columns of the HISTORY sheet.
var historyHeader = []any{
	"Date", "User", "Positions", "Market value", "Cost basis", "Gain/loss", "Gain/loss %",
	"Week", "Month", "Quarter", "Year", "Dividends (trailing)", "Valued", "Skipped",
}

// historyPercentCols lists column indices (0-based) that use a percent format.
var historyPercentCols = []int{7, 8, 9, 10}

// buildHistoryRow builds the single HISTORY row recorded for one export.
func buildHistoryRow(report domain.PortfolioReport, changes Changes) []any {
	return []any{
		report.AsOf.UTC().Format("2006-01-02"),
		report.UserID,
		report.Totals.Count,
		toFloat(report.Totals.MarketValue),
		toFloat(report.Totals.CostBasis),
		toFloat(report.Totals.GainLoss),
		toFloat(report.Totals.GainLossPercent),
		ptrFloat(changes.Week),
		ptrFloat(changes.Month),
		ptrFloat(changes.Quarter),
		ptrFloat(changes.Year),
		toFloat(report.Dividends.TrailingTotal),
		report.ValuationSummary.Valued,
		report.ValuationSummary.Skipped,
	}
}

// AppendHistory ensures the HISTORY sheet exists, writes the header row if the
// sheet is new or empty, then appends row.
func (w *SheetsWriter) AppendHistory(ctx context.Context, row []any) error {
	meta, err := w.ensureSheets(ctx, historySheet)
	if err != nil {
		return fmt.Errorf("ensuring %s sheet: %w", historySheet, err)
	}

	existing, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, historySheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", historySheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			historySheet+"!A1",
			&sheets.ValueRange{Values: [][]any{historyHeader}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", historySheet, err)
		}
		if err := w.formatHistory(ctx, meta[historySheet]); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", historySheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		historySheet+"!A:N",
		&sheets.ValueRange{Values: [][]any{row}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", historySheet, err)
	}
	return nil
}

// formatHistory bolds and freezes the header row and formats the change
// columns as percentages.
func (w *SheetsWriter) formatHistory(ctx context.Context, meta sheetMeta) error {
	totalCols := int64(len(historyHeader))

	reqs := []*sheets.Request{
		cellFormatReq(meta.id, 0, 1, 0, totalCols,
			&sheets.CellFormat{
				BackgroundColor:     &sheets.Color{Red: 0.851, Green: 0.918, Blue: 0.827},
				TextFormat:          &sheets.TextFormat{Bold: true},
				HorizontalAlignment: "CENTER",
			},
			"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"),
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        meta.id,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}
	for _, col := range historyPercentCols {
		reqs = append(reqs, cellFormatReq(meta.id, 1, 10000, int64(col), int64(col+1),
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "PERCENT", Pattern: "0.00%"}},
			"userEnteredFormat.numberFormat"))
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}

func cellFormatReq(sheetID, startRow, endRow, startCol, endCol int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}
