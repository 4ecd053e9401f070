package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rafhmansano/finpro/internal/snapshot"
)

// SQLiteSnapshots implements snapshot.Repository on the store's database.
type SQLiteSnapshots struct {
	store *SQLiteStore
}

// Snapshots returns the snapshot repository backed by this store.
func (s *SQLiteStore) Snapshots() *SQLiteSnapshots {
	return &SQLiteSnapshots{store: s}
}

func (r *SQLiteSnapshots) Save(ctx context.Context, userID string, date time.Time, data json.RawMessage) error {
	if err := r.store.ensureUser(ctx, userID); err != nil {
		return err
	}
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO report_snapshots (user_id, snapshot_date, data, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, snapshot_date) DO UPDATE SET data = excluded.data`,
		userID, date.UTC().Format(dateLayout), string(data), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteSnapshots) GetLatest(ctx context.Context, userID string) (*snapshot.Snapshot, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, snapshot_date, data, created_at
		FROM report_snapshots
		WHERE user_id = ?
		ORDER BY snapshot_date DESC
		LIMIT 1`, userID)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return s, nil
}

func (r *SQLiteSnapshots) GetByDate(ctx context.Context, userID string, date time.Time) (*snapshot.Snapshot, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, snapshot_date, data, created_at
		FROM report_snapshots
		WHERE user_id = ? AND snapshot_date = ?`, userID, date.UTC().Format(dateLayout))
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot by date: %w", err)
	}
	return s, nil
}

func (r *SQLiteSnapshots) List(ctx context.Context, userID string, limit int) ([]snapshot.Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, user_id, snapshot_date, data, created_at
		FROM report_snapshots
		WHERE user_id = ?
		ORDER BY snapshot_date DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []snapshot.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*snapshot.Snapshot, error) {
	var (
		s            snapshot.Snapshot
		day, created string
		data         string
	)
	if err := row.Scan(&s.ID, &s.UserID, &day, &data, &created); err != nil {
		return nil, err
	}
	var err error
	if s.SnapshotDate, err = time.Parse(dateLayout, day); err != nil {
		return nil, fmt.Errorf("snapshot date %q: %w", day, err)
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("snapshot created_at %q: %w", created, err)
	}
	s.Data = json.RawMessage(data)
	return &s, nil
}
