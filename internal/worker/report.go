package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafhmansano/finpro/internal/domain"
)

// SnapshotGenerator defines the interface for generating snapshots.
type SnapshotGenerator interface {
	Generate(ctx context.Context, userID string, date time.Time) (domain.PortfolioReport, error)
}

// UserLister lists the users to report on.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// AfterSnapshotHook is called after each successful snapshot generation.
type AfterSnapshotHook interface {
	Export(ctx context.Context, report domain.PortfolioReport) error
}

// ReportWorker periodically generates a report snapshot for every user.
type ReportWorker struct {
	generator SnapshotGenerator
	users     UserLister
	interval  time.Duration
	hook      AfterSnapshotHook // optional
	now       func() time.Time
}

// NewReportWorker creates a new ReportWorker with an optional post-generation hook.
func NewReportWorker(generator SnapshotGenerator, users UserLister, interval time.Duration, hook AfterSnapshotHook) *ReportWorker {
	return &ReportWorker{
		generator: generator,
		users:     users,
		interval:  interval,
		hook:      hook,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// runHook calls the post-generation hook if one is configured.
func (w *ReportWorker) runHook(ctx context.Context, report domain.PortfolioReport) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, report); err != nil {
		slog.Error("ReportWorker: export hook failed", "user", report.UserID, "error", err)
	} else {
		slog.Info("ReportWorker: export hook completed", "user", report.UserID)
	}
}

// GenerateAll snapshots every user. A failing user is logged and does not
// stop the others; the number of failures is returned as an error.
func (w *ReportWorker) GenerateAll(ctx context.Context) error {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	failed := 0
	at := w.now()
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		report, err := w.generator.Generate(ctx, user, at)
		if err != nil {
			slog.Error("ReportWorker: generation failed", "user", user, "error", err)
			failed++
			continue
		}
		slog.Info("ReportWorker: generation completed", "user", user, "holdings", len(report.Holdings))
		w.runHook(ctx, report)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed", failed, len(users))
	}
	return nil
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting", "interval", w.interval)

	// Generate immediately on startup
	if err := w.GenerateAll(ctx); err != nil {
		slog.Error("ReportWorker: initial generation failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.GenerateAll(ctx); err != nil {
				slog.Error("ReportWorker: generation failed", "error", err)
			}
		}
	}
}
