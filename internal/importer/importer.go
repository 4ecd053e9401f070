// Package importer turns CSV and XLSX exports into raw ledger records and
// appends them to a user's store.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/ledger"
)

// ErrInvalidFile marks a file that could not be decoded as a ledger.
var ErrInvalidFile = errors.New("invalid ledger file")

// Kind selects which ledger a file feeds.
type Kind string

const (
	KindTrades    Kind = "trades"
	KindDividends Kind = "dividends"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTrades, KindDividends:
		return k, nil
	}
	return "", fmt.Errorf("unknown import kind %q (want trades or dividends)", s)
}

// Format is the file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// zipMagic prefixes every XLSX file.
var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the format from the file name, falling back to content sniffing.
func DetectFormat(filename string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// Appender is the part of the store an import writes to.
type Appender interface {
	AppendTradeRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error)
	AppendDividendRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error)
}

// Result summarizes one import.
type Result struct {
	Kind       Kind             `json:"kind"`
	Rows       int              `json:"rows"`
	Inserted   int              `json:"inserted"`
	Duplicates int              `json:"duplicates"`
	Warnings   []domain.Warning `json:"warnings,omitempty"`
}

// Import reads r in the given format and appends its rows as kind records for userID.
// Rows that will not normalize are still stored; they are reported as warnings
// here and skipped whenever the ledger is read.
func Import(ctx context.Context, dst Appender, userID string, kind Kind, format Format, r io.Reader) (Result, error) {
	records, err := Read(r, format, kind)
	if err != nil {
		return Result{}, err
	}

	res := Result{Kind: kind, Rows: len(records)}
	switch kind {
	case KindTrades:
		_, res.Warnings = ledger.ReadTrades(records)
		res.Inserted, err = dst.AppendTradeRecords(ctx, userID, records)
	case KindDividends:
		_, res.Warnings = ledger.ReadDividends(records)
		res.Inserted, err = dst.AppendDividendRecords(ctx, userID, records)
	default:
		return Result{}, fmt.Errorf("unknown import kind %q", kind)
	}
	if err != nil {
		return Result{}, fmt.Errorf("storing %s: %w", kind, err)
	}
	res.Duplicates = res.Rows - res.Inserted

	slog.Info("import completed", "user", userID, "kind", kind, "format", format,
		"rows", res.Rows, "inserted", res.Inserted, "duplicates", res.Duplicates, "warnings", len(res.Warnings))
	return res, nil
}

// Read decodes r into raw records. Each record gets a stable ID so that
// importing the same file twice does not duplicate rows. Decode failures
// wrap ErrInvalidFile.
func Read(r io.Reader, format Format, kind Kind) ([]ledger.RawRecord, error) {
	var (
		rows []map[string]any
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r, "")
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidFile, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return toRecords(rows, kind), nil
}

// recordNamespace seeds the name-based UUIDs of imported rows.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rafhmansano/finpro/records"))

func toRecords(rows []map[string]any, kind Kind) []ledger.RawRecord {
	seen := make(map[string]int, len(rows))
	records := make([]ledger.RawRecord, 0, len(rows))
	for i, fields := range rows {
		id := explicitID(fields)
		if id == "" {
			content := contentKey(fields)
			// Identical rows within one file are distinct events.
			n := seen[content]
			seen[content] = n + 1
			id = uuid.NewSHA1(recordNamespace, []byte(string(kind)+"\x00"+content+"\x00"+strconv.Itoa(n))).String()
		}
		records = append(records, ledger.RawRecord{ID: id, Seq: int64(i), Fields: fields})
	}
	return records
}

func explicitID(fields map[string]any) string {
	for k, v := range fields {
		if strings.EqualFold(strings.TrimSpace(k), "id") {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func contentKey(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, fields[k])
	}
	return b.String()
}

// headerRow maps the header cells to field names, dropping blanks and repeats.
func headerRow(cells []string) []string {
	names := make([]string, len(cells))
	seen := make(map[string]bool, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		names[i] = c
	}
	return names
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks ';' for the semicolon-separated exports common with
// comma decimals, ',' otherwise.
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	if bytes.Count(line, []byte("\t")) > bytes.Count(line, []byte(",")) {
		return '\t'
	}
	return ','
}
