package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/ledger"
	"github.com/rafhmansano/finpro/internal/quote"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const (
	timeLayout = "2006-01-02T15:04:05.000000000Z"
	dateLayout = "2006-01-02"
)

// SQLiteStore implements Store, quote.Repository and snapshot.Repository on a
// single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func (s *SQLiteStore) ensureUser(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO users (id) VALUES (?)`, userID)
	if err != nil {
		return fmt.Errorf("ensuring user %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) AppendTradeRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error) {
	return s.appendRecords(ctx, "trade_records", userID, records)
}

func (s *SQLiteStore) AppendDividendRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error) {
	return s.appendRecords(ctx, "dividend_records", userID, records)
}

func (s *SQLiteStore) appendRecords(ctx context.Context, table, userID string, records []ledger.RawRecord) (int, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, rec := range records {
		payload, err := encodeFields(rec.Fields)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (user_id, id, payload) VALUES (?, ?, ?)`,
			userID, recordID(rec.ID), string(payload))
		if err != nil {
			return 0, fmt.Errorf("inserting into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s: %w", table, err)
	}
	return inserted, nil
}

func (s *SQLiteStore) ListTradeRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error) {
	return s.listRecords(ctx, "trade_records", userID)
}

func (s *SQLiteStore) ListDividendRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error) {
	return s.listRecords(ctx, "dividend_records", userID)
}

func (s *SQLiteStore) listRecords(ctx context.Context, table, userID string) ([]ledger.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, payload FROM `+table+` WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	defer rows.Close()

	var records []ledger.RawRecord
	for rows.Next() {
		var (
			rec     ledger.RawRecord
			payload string
		)
		if err := rows.Scan(&rec.Seq, &rec.ID, &payload); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		if rec.Fields, err = decodeFields([]byte(payload)); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) UpsertAsset(ctx context.Context, userID string, asset domain.AssetMeta) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	asset.Ticker = domain.NormalizeTicker(asset.Ticker)
	if asset.Ticker == "" {
		return errors.New("asset ticker must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (user_id, ticker, name, class, opening_quantity, opening_average_cost)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, ticker) DO UPDATE SET
			name = excluded.name,
			class = excluded.class,
			opening_quantity = excluded.opening_quantity,
			opening_average_cost = excluded.opening_average_cost`,
		userID, asset.Ticker, asset.Name, asset.Class,
		asset.OpeningQuantity.String(), asset.OpeningAverageCost.String(),
	)
	if err != nil {
		return fmt.Errorf("saving asset %s: %w", asset.Ticker, err)
	}
	return nil
}

func (s *SQLiteStore) ListAssets(ctx context.Context, userID string) ([]domain.AssetMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, name, class, opening_quantity, opening_average_cost
		FROM assets WHERE user_id = ? ORDER BY ticker`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.AssetMeta
	for rows.Next() {
		var a domain.AssetMeta
		if err := rows.Scan(&a.Ticker, &a.Name, &a.Class, &a.OpeningQuantity, &a.OpeningAverageCost); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *SQLiteStore) UpsertFundamentals(ctx context.Context, f domain.Fundamentals) error {
	f.Ticker = domain.NormalizeTicker(f.Ticker)
	if f.Ticker == "" {
		return errors.New("fundamentals ticker must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fundamentals (ticker, eps, book_value_per_share, dividend_per_share,
			trailing_yield, growth_rate, discount_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			eps = excluded.eps,
			book_value_per_share = excluded.book_value_per_share,
			dividend_per_share = excluded.dividend_per_share,
			trailing_yield = excluded.trailing_yield,
			growth_rate = excluded.growth_rate,
			discount_rate = excluded.discount_rate,
			updated_at = excluded.updated_at`,
		f.Ticker, f.EPS.String(), f.BookValuePerShare.String(), f.DividendPerShare.String(),
		f.TrailingDividendYield.String(), f.GrowthRate.String(), f.DiscountRate.String(),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving fundamentals for %s: %w", f.Ticker, err)
	}
	return nil
}

func (s *SQLiteStore) ListFundamentals(ctx context.Context) (map[string]domain.Fundamentals, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, eps, book_value_per_share, dividend_per_share,
			trailing_yield, growth_rate, discount_rate
		FROM fundamentals`)
	if err != nil {
		return nil, fmt.Errorf("listing fundamentals: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Fundamentals)
	for rows.Next() {
		var f domain.Fundamentals
		if err := rows.Scan(&f.Ticker, &f.EPS, &f.BookValuePerShare, &f.DividendPerShare,
			&f.TrailingDividendYield, &f.GrowthRate, &f.DiscountRate); err != nil {
			return nil, fmt.Errorf("scanning fundamentals: %w", err)
		}
		result[f.Ticker] = f
	}
	return result, rows.Err()
}

func (s *SQLiteStore) AddAccount(ctx context.Context, userID string, account domain.Account) (domain.Account, error) {
	account, err := prepareAccount(account)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return domain.Account{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, institution, kind)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			institution = excluded.institution,
			kind = excluded.kind`,
		account.ID, userID, account.Name, account.Institution, string(account.Kind),
	)
	if err != nil {
		return domain.Account{}, fmt.Errorf("saving account %s: %w", account.Name, err)
	}
	return account, nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, institution, kind FROM accounts WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var (
			a    domain.Account
			kind string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Institution, &kind); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		a.Kind = domain.AccountKind(kind)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) AddCashTransaction(ctx context.Context, userID string, tx domain.CashTransaction) (domain.CashTransaction, error) {
	tx, err := prepareCashTransaction(tx)
	if err != nil {
		return domain.CashTransaction{}, err
	}
	var owner string
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id FROM accounts WHERE id = ?`, tx.AccountID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		return domain.CashTransaction{}, fmt.Errorf("account %s: %w", tx.AccountID, ErrNotFound)
	}
	if err != nil {
		return domain.CashTransaction{}, fmt.Errorf("checking account: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO cash_transactions (id, user_id, account_id, kind, amount, occurred_at, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, userID, tx.AccountID, string(tx.Kind), tx.Amount.String(), formatTime(tx.OccurredAt), tx.Description,
	)
	if err != nil {
		return domain.CashTransaction{}, fmt.Errorf("saving cash transaction: %w", err)
	}
	return tx, nil
}

func (s *SQLiteStore) ListCashTransactions(ctx context.Context, userID string) ([]domain.CashTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, amount, occurred_at, description
		FROM cash_transactions WHERE user_id = ? ORDER BY occurred_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cash transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.CashTransaction
	for rows.Next() {
		var (
			t          domain.CashTransaction
			kind, when string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &kind, &t.Amount, &when, &t.Description); err != nil {
			return nil, fmt.Errorf("scanning cash transaction: %w", err)
		}
		t.Kind = domain.CashKind(kind)
		if t.OccurredAt, err = parseTime(when); err != nil {
			return nil, fmt.Errorf("cash transaction %s: %w", t.ID, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SaveQuote implements quote.Repository.
func (s *SQLiteStore) SaveQuote(ctx context.Context, ticker string, price decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (ticker, price, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			price = excluded.price,
			updated_at = excluded.updated_at`,
		ticker, price.String(), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", ticker, err)
	}
	return nil
}

// GetQuote implements quote.Repository.
func (s *SQLiteStore) GetQuote(ctx context.Context, ticker string) (quote.Quote, error) {
	var (
		q       quote.Quote
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT ticker, price, updated_at FROM quotes WHERE ticker = ?`, ticker).
		Scan(&q.Ticker, &q.Price, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return quote.Quote{}, quote.ErrNotFound
	}
	if err != nil {
		return quote.Quote{}, fmt.Errorf("getting quote for %s: %w", ticker, err)
	}
	if q.UpdatedAt, err = parseTime(updated); err != nil {
		return quote.Quote{}, fmt.Errorf("quote %s: %w", ticker, err)
	}
	return q, nil
}

// GetAllQuotes implements quote.Repository.
func (s *SQLiteStore) GetAllQuotes(ctx context.Context) ([]quote.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker, price, updated_at FROM quotes ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []quote.Quote
	for rows.Next() {
		var (
			q       quote.Quote
			updated string
		)
		if err := rows.Scan(&q.Ticker, &q.Price, &updated); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		if q.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("quote %s: %w", q.Ticker, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
