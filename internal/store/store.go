// Package store persists the per-user records the core derives from: raw
// trade and dividend records, asset metadata, fundamentals, accounts and cash
// transactions. Two implementations share one interface: PgStore for the
// server and SQLiteStore for local CLI use.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/ledger"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the record store. Every per-user method is partitioned by userID.
type Store interface {
	ListUsers(ctx context.Context) ([]string, error)

	// AppendTradeRecords stores raw records in order. Records whose ID is
	// already stored for the user are skipped. Returns the number inserted.
	AppendTradeRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error)
	AppendDividendRecords(ctx context.Context, userID string, records []ledger.RawRecord) (int, error)
	// ListTradeRecords returns raw records in insertion order with Seq set.
	ListTradeRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error)
	ListDividendRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error)

	UpsertAsset(ctx context.Context, userID string, asset domain.AssetMeta) error
	ListAssets(ctx context.Context, userID string) ([]domain.AssetMeta, error)

	UpsertFundamentals(ctx context.Context, f domain.Fundamentals) error
	ListFundamentals(ctx context.Context) (map[string]domain.Fundamentals, error)

	AddAccount(ctx context.Context, userID string, account domain.Account) (domain.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	AddCashTransaction(ctx context.Context, userID string, tx domain.CashTransaction) (domain.CashTransaction, error)
	ListCashTransactions(ctx context.Context, userID string) ([]domain.CashTransaction, error)
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id must not be empty")
	}
	return nil
}

func recordID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding record fields: %w", err)
	}
	return data, nil
}

// decodeFields keeps numbers as json.Number so decimal values survive the round trip.
func decodeFields(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding record fields: %w", err)
	}
	return fields, nil
}

func prepareAccount(account domain.Account) (domain.Account, error) {
	account.ID = recordID(account.ID)
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return domain.Account{}, errors.New("account name must not be empty")
	}
	if account.Kind == "" {
		account.Kind = domain.AccountKindOther
	}
	return account, nil
}

func prepareCashTransaction(tx domain.CashTransaction) (domain.CashTransaction, error) {
	tx.ID = recordID(tx.ID)
	if tx.AccountID == "" {
		return domain.CashTransaction{}, errors.New("cash transaction needs an account")
	}
	if tx.Kind != domain.CashDeposit && tx.Kind != domain.CashWithdrawal {
		return domain.CashTransaction{}, fmt.Errorf("invalid cash transaction kind %q", tx.Kind)
	}
	if !tx.Amount.IsPositive() {
		return domain.CashTransaction{}, errors.New("cash transaction amount must be positive")
	}
	if tx.OccurredAt.IsZero() {
		return domain.CashTransaction{}, errors.New("cash transaction needs a date")
	}
	return tx, nil
}
