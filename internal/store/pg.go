package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/ledger"
)

// PgStore implements Store with PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL record store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) ensureUser(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("ensuring user %s: %w", userID, err)
	}
	return nil
}

func (s *PgStore) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning users: %w", err)
	}
	return users, nil
}

func (s *PgStore) AppendTradeRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error) {
	return s.appendRecords(ctx, "trade_records", userID, records)
}

func (s *PgStore) AppendDividendRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error) {
	return s.appendRecords(ctx, "dividend_records", userID, records)
}

func (s *PgStore) appendRecords(ctx context.Context, table, userID string, records []ledger.RawRecord) (int, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, rec := range records {
		payload, err := encodeFields(rec.Fields)
		if err != nil {
			return 0, err
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO `+table+` (user_id, id, payload)
			 VALUES ($1, $2, $3::jsonb)
			 ON CONFLICT (user_id, id) DO NOTHING`,
			userID, recordID(rec.ID), string(payload))
		if err != nil {
			return 0, fmt.Errorf("inserting into %s: %w", table, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing %s: %w", table, err)
	}
	return inserted, nil
}

func (s *PgStore) ListTradeRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error) {
	return s.listRecords(ctx, "trade_records", userID)
}

func (s *PgStore) ListDividendRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error) {
	return s.listRecords(ctx, "dividend_records", userID)
}

func (s *PgStore) listRecords(ctx context.Context, table, userID string) ([]ledger.RawRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, id, payload FROM `+table+` WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	defer rows.Close()

	var records []ledger.RawRecord
	for rows.Next() {
		var (
			rec     ledger.RawRecord
			payload []byte
		)
		if err := rows.Scan(&rec.Seq, &rec.ID, &payload); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		if rec.Fields, err = decodeFields(payload); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PgStore) UpsertAsset(ctx context.Context, userID string, asset domain.AssetMeta) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	asset.Ticker = domain.NormalizeTicker(asset.Ticker)
	if asset.Ticker == "" {
		return errors.New("asset ticker must not be empty")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO assets (user_id, ticker, name, class, opening_quantity, opening_average_cost)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, ticker) DO UPDATE SET
		     name = $3, class = $4, opening_quantity = $5, opening_average_cost = $6`,
		userID, asset.Ticker, asset.Name, asset.Class, asset.OpeningQuantity, asset.OpeningAverageCost)
	if err != nil {
		return fmt.Errorf("saving asset %s: %w", asset.Ticker, err)
	}
	return nil
}

func (s *PgStore) ListAssets(ctx context.Context, userID string) ([]domain.AssetMeta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ticker, name, class, opening_quantity, opening_average_cost
		 FROM assets WHERE user_id = $1 ORDER BY ticker`, userID)
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

func (s *PgStore) UpsertFundamentals(ctx context.Context, f domain.Fundamentals) error {
	f.Ticker = domain.NormalizeTicker(f.Ticker)
	if f.Ticker == "" {
		return errors.New("fundamentals ticker must not be empty")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fundamentals (ticker, eps, book_value_per_share, dividend_per_share,
		     trailing_yield, growth_rate, discount_rate, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (ticker) DO UPDATE SET
		     eps = $2, book_value_per_share = $3, dividend_per_share = $4,
		     trailing_yield = $5, growth_rate = $6, discount_rate = $7, updated_at = NOW()`,
		f.Ticker, f.EPS, f.BookValuePerShare, f.DividendPerShare,
		f.TrailingDividendYield, f.GrowthRate, f.DiscountRate)
	if err != nil {
		return fmt.Errorf("saving fundamentals for %s: %w", f.Ticker, err)
	}
	return nil
}

func (s *PgStore) ListFundamentals(ctx context.Context) (map[string]domain.Fundamentals, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ticker, eps, book_value_per_share, dividend_per_share,
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

func (s *PgStore) AddAccount(ctx context.Context, userID string, account domain.Account) (domain.Account, error) {
	account, err := prepareAccount(account)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return domain.Account{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO accounts (id, user_id, name, institution, kind)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $3, institution = $4, kind = $5`,
		account.ID, userID, account.Name, account.Institution, account.Kind)
	if err != nil {
		return domain.Account{}, fmt.Errorf("saving account %s: %w", account.Name, err)
	}
	return account, nil
}

func (s *PgStore) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, institution, kind FROM accounts WHERE user_id = $1 ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Institution, &a.Kind); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PgStore) AddCashTransaction(ctx context.Context, userID string, tx domain.CashTransaction) (domain.CashTransaction, error) {
	tx, err := prepareCashTransaction(tx)
	if err != nil {
		return domain.CashTransaction{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO cash_transactions (id, user_id, account_id, kind, amount, occurred_at, description)
		 SELECT $1::text, $2::text, $3::text, $4::text, $5::numeric, $6::timestamptz, $7::text
		 WHERE EXISTS (SELECT 1 FROM accounts WHERE id = $3 AND user_id = $2)
		 ON CONFLICT (id) DO NOTHING`,
		tx.ID, userID, tx.AccountID, tx.Kind, tx.Amount, tx.OccurredAt, tx.Description)
	if err != nil {
		return domain.CashTransaction{}, fmt.Errorf("saving cash transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if err := s.cashTransactionExists(ctx, userID, tx.ID); err != nil {
			return domain.CashTransaction{}, fmt.Errorf("account %s: %w", tx.AccountID, err)
		}
	}
	return tx, nil
}

func (s *PgStore) cashTransactionExists(ctx context.Context, userID, id string) error {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cash_transactions WHERE id = $1 AND user_id = $2`, id, userID).Scan(&n)
	if err != nil {
		return fmt.Errorf("checking cash transaction: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ListCashTransactions(ctx context.Context, userID string) ([]domain.CashTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, kind, amount, occurred_at, description
		 FROM cash_transactions WHERE user_id = $1 ORDER BY occurred_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cash transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.CashTransaction
	for rows.Next() {
		var t domain.CashTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.OccurredAt, &t.Description); err != nil {
			return nil, fmt.Errorf("scanning cash transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
