package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

type mockReportGenerator struct {
	report domain.PortfolioReport
	err    error
	gotAt  time.Time
}

func (m *mockReportGenerator) Report(_ context.Context, userID string, asOf time.Time) (domain.PortfolioReport, error) {
	m.gotAt = asOf
	r := m.report
	r.UserID = userID
	return r, m.err
}

type mockRepo struct {
	saveErr   error
	savedUser string
	savedData json.RawMessage
	savedDate time.Time
	latest    *Snapshot
	latestErr error
	byDate    *Snapshot
	byDateErr error
	gotDate   time.Time
	list      []Snapshot
	listErr   error
}

func (m *mockRepo) Save(_ context.Context, userID string, date time.Time, data json.RawMessage) error {
	m.savedUser = userID
	m.savedData = data
	m.savedDate = date
	return m.saveErr
}

func (m *mockRepo) GetLatest(_ context.Context, _ string) (*Snapshot, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	return m.latest, nil
}

func (m *mockRepo) GetByDate(_ context.Context, _ string, date time.Time) (*Snapshot, error) {
	m.gotDate = date
	if m.byDateErr != nil {
		return nil, m.byDateErr
	}
	return m.byDate, nil
}

func (m *mockRepo) List(_ context.Context, _ string, _ int) ([]Snapshot, error) {
	return m.list, m.listErr
}

func TestGenerateSuccess(t *testing.T) {
	reports := &mockReportGenerator{report: domain.PortfolioReport{
		Totals: domain.Totals{Count: 3, MarketValue: decimal.NewFromInt(1500)},
	}}
	repo := &mockRepo{}
	svc := NewService(reports, repo)

	at := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	result, err := svc.Generate(context.Background(), "alice", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Totals.Count != 3 {
		t.Errorf("Count = %d, want 3", result.Totals.Count)
	}
	if repo.savedData == nil {
		t.Fatal("expected data to be saved")
	}
	if repo.savedUser != "alice" {
		t.Errorf("savedUser = %q, want alice", repo.savedUser)
	}
	if want := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC); !repo.savedDate.Equal(want) {
		t.Errorf("savedDate = %v, want %v", repo.savedDate, want)
	}
	if !reports.gotAt.Equal(at) {
		t.Errorf("report asOf = %v, want %v", reports.gotAt, at)
	}

	decoded, err := Snapshot{Data: repo.savedData}.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Totals.MarketValue.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("decoded MarketValue = %s, want 1500", decoded.Totals.MarketValue)
	}
}

func TestGenerateReportError(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(&mockReportGenerator{err: errors.New("store down")}, repo)

	_, err := svc.Generate(context.Background(), "alice", time.Now())
	if err == nil {
		t.Fatal("expected error from report generator")
	}
	if repo.savedData != nil {
		t.Error("nothing should be saved when generation fails")
	}
}

func TestGenerateRepoSaveError(t *testing.T) {
	repo := &mockRepo{saveErr: errors.New("save failed")}
	svc := NewService(&mockReportGenerator{}, repo)

	_, err := svc.Generate(context.Background(), "alice", time.Now())
	if err == nil {
		t.Fatal("expected error from repo save")
	}
}

func TestGetByDateTruncatesToDay(t *testing.T) {
	repo := &mockRepo{byDate: &Snapshot{ID: 7}}
	svc := NewService(&mockReportGenerator{}, repo)

	snap, err := svc.GetByDate(context.Background(), "alice", time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ID != 7 {
		t.Errorf("ID = %d, want 7", snap.ID)
	}
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !repo.gotDate.Equal(want) {
		t.Errorf("queried date = %v, want %v", repo.gotDate, want)
	}
}

func TestGetLatestNotFound(t *testing.T) {
	svc := NewService(&mockReportGenerator{}, &mockRepo{latestErr: ErrNotFound})

	_, err := svc.GetLatest(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDecodeInvalidData(t *testing.T) {
	if _, err := (Snapshot{ID: 1, Data: json.RawMessage(`{"holdings":`)}).Decode(); err == nil {
		t.Error("expected decode error")
	}
}
