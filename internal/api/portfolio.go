package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/dividend"
	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/position"
	"github.com/rafhmansano/finpro/internal/valuation"
)

// Portfolio derives the per-user views served by the API.
type Portfolio interface {
	Positions(ctx context.Context, userID string, asOf time.Time) (position.Result, error)
	Valuations(ctx context.Context, userID string, asOf time.Time) (valuation.Batch, error)
	Dividends(ctx context.Context, userID string, ref time.Time, months int) (domain.DividendSummary, []domain.Warning, error)
	Report(ctx context.Context, userID string, asOf time.Time) (domain.PortfolioReport, error)
}

type positionsResponse struct {
	Holdings []domain.Position `json:"holdings"`
	Closed   []domain.Position `json:"closed,omitempty"`
	Totals   domain.Totals     `json:"totals"`
	Warnings []domain.Warning  `json:"warnings,omitempty"`
}

type valuationsResponse struct {
	Results  []domain.ValuationResult  `json:"results"`
	Skipped  []domain.SkippedValuation `json:"skipped,omitempty"`
	Summary  domain.ValuationSummary   `json:"summary"`
	Warnings []domain.Warning          `json:"warnings,omitempty"`
}

type dividendsResponse struct {
	Summary  domain.DividendSummary `json:"summary"`
	Goal     *dividend.Progress     `json:"goal,omitempty"`
	Warnings []domain.Warning       `json:"warnings,omitempty"`
}

// GetPositions handles GET /api/v1/users/{user}/positions.
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	asOf, ok := asOfParam(w, r)
	if !ok {
		return
	}

	res, err := h.portfolio.Positions(r.Context(), user, asOf)
	if err != nil {
		slog.Error("failed to reconstruct positions", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, positionsResponse{
		Holdings: nonNil(res.Holdings),
		Closed:   res.Closed,
		Totals:   position.Summarize(res.Holdings),
		Warnings: res.Warnings,
	})
}

// GetValuations handles GET /api/v1/users/{user}/valuations.
func (h *Handler) GetValuations(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	asOf, ok := asOfParam(w, r)
	if !ok {
		return
	}

	batch, err := h.portfolio.Valuations(r.Context(), user, asOf)
	if err != nil {
		slog.Error("failed to value positions", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, valuationsResponse{
		Results:  nonNil(batch.Results),
		Skipped:  batch.Skipped,
		Summary:  batch.Summary(),
		Warnings: batch.Warnings,
	})
}

// GetDividends handles GET /api/v1/users/{user}/dividends?months=12&ref=YYYY-MM-DD&goal=1500.
func (h *Handler) GetDividends(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	ref := time.Now().UTC()
	if s := r.URL.Query().Get("ref"); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ref date, expected YYYY-MM-DD")
			return
		}
		ref = endOfDay(d)
	}

	months := 0 // service default
	if s := r.URL.Query().Get("months"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 120 {
			writeError(w, http.StatusBadRequest, "months must be between 1 and 120")
			return
		}
		months = n
	}

	var goal *decimal.Decimal
	if s := r.URL.Query().Get("goal"); s != "" {
		g, err := decimal.NewFromString(s)
		if err != nil || !g.IsPositive() {
			writeError(w, http.StatusBadRequest, "goal must be a positive amount")
			return
		}
		goal = &g
	}

	summary, warnings, err := h.portfolio.Dividends(r.Context(), user, ref, months)
	if err != nil {
		slog.Error("failed to aggregate dividends", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := dividendsResponse{Summary: summary, Warnings: warnings}
	if goal != nil {
		p := dividend.GoalProgress(summary, *goal)
		resp.Goal = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReport handles GET /api/v1/users/{user}/report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	asOf, ok := asOfParam(w, r)
	if !ok {
		return
	}

	report, err := h.portfolio.Report(r.Context(), user, asOf)
	if err != nil {
		slog.Error("failed to build report", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// asOfParam reads the optional asOf query date. A date covers the whole day.
// It writes the 400 response itself and returns false on a bad value.
func asOfParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	s := r.URL.Query().Get("asOf")
	if s == "" {
		return time.Now().UTC(), true
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid asOf date %q, expected YYYY-MM-DD", s))
		return time.Time{}, false
	}
	return endOfDay(d), true
}

func endOfDay(d time.Time) time.Time {
	return d.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
