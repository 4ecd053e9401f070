package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no quote is stored for a ticker.
var ErrNotFound = errors.New("quote not found")

// Quote is a stored price quote.
type Quote struct {
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Repository defines persistent storage for quotes.
type Repository interface {
	SaveQuote(ctx context.Context, ticker string, price decimal.Decimal) error
	GetQuote(ctx context.Context, ticker string) (Quote, error)
	GetAllQuotes(ctx context.Context) ([]Quote, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL quote repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) SaveQuote(ctx context.Context, ticker string, price decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quotes (ticker, price, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (ticker) DO UPDATE SET price = $2, updated_at = NOW()`,
		ticker, price)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", ticker, err)
	}
	return nil
}

func (r *PgRepository) GetQuote(ctx context.Context, ticker string) (Quote, error) {
	var q Quote
	err := r.pool.QueryRow(ctx,
		`SELECT ticker, price, updated_at FROM quotes WHERE ticker = $1`,
		ticker).Scan(&q.Ticker, &q.Price, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("getting quote for %s: %w", ticker, err)
	}
	return q, nil
}

func (r *PgRepository) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ticker, price, updated_at FROM quotes ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.Ticker, &q.Price, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
