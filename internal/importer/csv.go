package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

func readCSV(r io.Reader) ([]map[string]any, error) {
	br := bufio.NewReader(r)
	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	names := headerRow(header)

	var rows []map[string]any
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if blank(cells) {
			continue
		}
		fields := make(map[string]any, len(names))
		for i, name := range names {
			if name == "" || i >= len(cells) {
				continue
			}
			fields[name] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, fields)
	}
	return rows, nil
}
