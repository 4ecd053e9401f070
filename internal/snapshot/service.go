// Package snapshot stores one generated portfolio report per user per day so
// reports can be compared over time.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rafhmansano/finpro/internal/domain"
)

// ReportGenerator builds a user's portfolio report as of a date.
type ReportGenerator interface {
	Report(ctx context.Context, userID string, asOf time.Time) (domain.PortfolioReport, error)
}

// Service manages snapshot generation and retrieval.
type Service struct {
	reports ReportGenerator
	repo    Repository
}

// NewService creates a new snapshot Service.
func NewService(reports ReportGenerator, repo Repository) *Service {
	if reports == nil || repo == nil {
		panic("snapshot.NewService: dependencies must not be nil")
	}
	return &Service{reports: reports, repo: repo}
}

// Generate builds the report for userID as of date and stores it, replacing
// any snapshot already stored for that day.
func (s *Service) Generate(ctx context.Context, userID string, date time.Time) (domain.PortfolioReport, error) {
	report, err := s.reports.Report(ctx, userID, date)
	if err != nil {
		return domain.PortfolioReport{}, fmt.Errorf("generating report: %w", err)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return domain.PortfolioReport{}, fmt.Errorf("marshaling report: %w", err)
	}

	if err := s.repo.Save(ctx, userID, truncateDay(date), data); err != nil {
		return domain.PortfolioReport{}, fmt.Errorf("saving snapshot: %w", err)
	}

	return report, nil
}

// GetLatest retrieves the most recent snapshot for the user.
func (s *Service) GetLatest(ctx context.Context, userID string) (*Snapshot, error) {
	return s.repo.GetLatest(ctx, userID)
}

// GetByDate retrieves a snapshot for a specific date.
func (s *Service) GetByDate(ctx context.Context, userID string, date time.Time) (*Snapshot, error) {
	return s.repo.GetByDate(ctx, userID, truncateDay(date))
}

// List retrieves recent snapshots.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, userID, limit)
}

// Decode unmarshals the stored report.
func (s Snapshot) Decode() (domain.PortfolioReport, error) {
	var report domain.PortfolioReport
	if err := json.Unmarshal(s.Data, &report); err != nil {
		return domain.PortfolioReport{}, fmt.Errorf("decoding snapshot %d: %w", s.ID, err)
	}
	return report, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
