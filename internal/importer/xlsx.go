package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rafhmansano/finpro/internal/ledger"
)

// readXLSX reads the named sheet, or the first sheet when name is empty.
// Cells are read raw so date columns arrive as Excel serials and are converted here.
func readXLSX(r io.Reader, sheet string) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	names := headerRow(rows[0])
	dateCols := make([]bool, len(names))
	for i, name := range names {
		dateCols[i] = name != "" && ledger.IsDateField(name)
	}

	var out []map[string]any
	for _, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		fields := make(map[string]any, len(names))
		for i, name := range names {
			if name == "" || i >= len(cells) {
				continue
			}
			fields[name] = cellValue(cells[i], dateCols[i])
		}
		out = append(out, fields)
	}
	return out, nil
}

func cellValue(raw string, isDate bool) any {
	raw = strings.TrimSpace(raw)
	if !isDate || raw == "" {
		return raw
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Dates typed as text are left for the ledger's layouts.
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}
