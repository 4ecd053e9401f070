package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements Writer by rendering the tables into an XLSX workbook,
// one worksheet per table.
type XLSXWriter struct {
	out io.Writer
}

// NewXLSXWriter creates an XLSXWriter that writes the workbook to out.
func NewXLSXWriter(out io.Writer) *XLSXWriter {
	return &XLSXWriter{out: out}
}

// Write builds the workbook and writes it to the output.
func (w *XLSXWriter) Write(_ context.Context, _ string, tables []Table) error {
	f, err := Workbook(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w.out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Workbook lays the tables out as worksheets with a bold header row.
func Workbook(tables []Table) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", t.Name, err)
		}

		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				f.Close()
				return nil, err
			}
			values := row
			if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
				f.Close()
				return nil, fmt.Errorf("writing %s row %d: %w", t.Name, r+1, err)
			}
		}

		if len(t.Rows) > 0 && len(t.Rows[0]) > 0 {
			last, err := excelize.CoordinatesToCellName(len(t.Rows[0]), 1)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellStyle(t.Name, "A1", last, header); err != nil {
				f.Close()
				return nil, fmt.Errorf("styling %s header: %w", t.Name, err)
			}
		}
	}

	return f, nil
}
