package api

import (
	"bufio"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rafhmansano/finpro/internal/importer"
)

// maxImportBytes bounds an uploaded ledger file.
const maxImportBytes = 32 << 20

// RecordAppender stores imported ledger records.
type RecordAppender = importer.Appender

// ImportRecords handles POST /api/v1/users/{user}/imports/{kind}.
// The body is the raw CSV or XLSX file. The format is taken from the
// "format" query parameter, then the "filename" one, then the content.
func (h *Handler) ImportRecords(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	kind, err := importer.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body := bufio.NewReader(http.MaxBytesReader(w, r.Body, maxImportBytes))
	var format importer.Format
	switch f := r.URL.Query().Get("format"); f {
	case "":
		head, _ := body.Peek(4)
		format = importer.DetectFormat(r.URL.Query().Get("filename"), head)
	case string(importer.FormatCSV), string(importer.FormatXLSX):
		format = importer.Format(f)
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	res, err := importer.Import(r.Context(), h.records, user, kind, format, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		if errors.Is(err, importer.ErrInvalidFile) {
			slog.Warn("rejected import file", "user", user, "kind", kind, "format", format, "error", err)
			writeError(w, http.StatusBadRequest, "file could not be read as a "+string(format)+" ledger")
			return
		}
		slog.Error("failed to import records", "user", user, "kind", kind, "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
