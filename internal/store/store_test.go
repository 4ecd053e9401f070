package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/ledger"
	"github.com/rafhmansano/finpro/internal/quote"
	"github.com/rafhmansano/finpro/internal/snapshot"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "finpro.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("records keep insertion order and dedupe by id", func(t *testing.T) {
		n, err := s.AppendTradeRecords(ctx, "alice", []ledger.RawRecord{
			{ID: "t1", Fields: map[string]any{"ticker": "PETR4", "side": "BUY", "quantity": 100, "price": "10.50", "date": "2024-01-02"}},
			{ID: "t2", Fields: map[string]any{"ticker": "PETR4", "side": "SELL", "quantity": 40, "price": 12.25, "date": "2024-02-02"}},
			{Fields: map[string]any{"ticker": "VALE3", "side": "BUY", "quantity": 5, "price": 60, "date": "2024-03-01"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = s.AppendTradeRecords(ctx, "alice", []ledger.RawRecord{
			{ID: "t1", Fields: map[string]any{"ticker": "PETR4"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, n, "duplicate id must be skipped")

		records, err := s.ListTradeRecords(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "t1", records[0].ID)
		assert.Equal(t, "t2", records[1].ID)
		assert.NotEmpty(t, records[2].ID, "missing ids are generated")
		assert.Less(t, records[0].Seq, records[1].Seq)
		assert.Less(t, records[1].Seq, records[2].Seq)
		assert.Equal(t, json.Number("100"), records[0].Fields["quantity"])
		assert.Equal(t, "10.50", records[0].Fields["price"])

		trades, warnings := ledger.ReadTrades(records)
		assert.Empty(t, warnings)
		require.Len(t, trades, 3)
		assert.True(t, trades[1].UnitPrice.Equal(decimal.RequireFromString("12.25")))
	})

	t.Run("records are partitioned by user", func(t *testing.T) {
		_, err := s.AppendDividendRecords(ctx, "bob", []ledger.RawRecord{
			{ID: "d1", Fields: map[string]any{"ticker": "HGLG11", "amount": "1.10", "paidOn": "2024-01-15"}},
		})
		require.NoError(t, err)

		bob, err := s.ListDividendRecords(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, bob, 1)

		alice, err := s.ListDividendRecords(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, alice)

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, users)
	})

	t.Run("empty user is rejected", func(t *testing.T) {
		_, err := s.AppendTradeRecords(ctx, " ", nil)
		assert.Error(t, err)
	})

	t.Run("assets upsert", func(t *testing.T) {
		require.NoError(t, s.UpsertAsset(ctx, "alice", domain.AssetMeta{Ticker: "petr4", Name: "Petrobras"}))
		require.NoError(t, s.UpsertAsset(ctx, "alice", domain.AssetMeta{
			Ticker: "PETR4", Name: "Petrobras PN", Class: "EQUITY",
			OpeningQuantity: decimal.NewFromInt(10), OpeningAverageCost: decimal.RequireFromString("25.5"),
		}))
		assets, err := s.ListAssets(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, "Petrobras PN", assets[0].Name)
		assert.True(t, assets[0].OpeningAverageCost.Equal(decimal.RequireFromString("25.5")))
		assert.True(t, assets[0].HasOpeningHolding())
	})

	t.Run("fundamentals upsert", func(t *testing.T) {
		require.NoError(t, s.UpsertFundamentals(ctx, domain.Fundamentals{Ticker: "PETR4", EPS: decimal.NewFromInt(4), BookValuePerShare: decimal.NewFromInt(25)}))
		require.NoError(t, s.UpsertFundamentals(ctx, domain.Fundamentals{Ticker: "PETR4", EPS: decimal.NewFromInt(5), BookValuePerShare: decimal.NewFromInt(25)}))
		all, err := s.ListFundamentals(ctx)
		require.NoError(t, err)
		require.Contains(t, all, "PETR4")
		assert.True(t, all["PETR4"].EPS.Equal(decimal.NewFromInt(5)))
	})

	t.Run("accounts and cash", func(t *testing.T) {
		acct, err := s.AddAccount(ctx, "alice", domain.Account{Name: "Broker", Kind: domain.AccountKindBrokerage})
		require.NoError(t, err)
		assert.NotEmpty(t, acct.ID)

		_, err = s.AddAccount(ctx, "alice", domain.Account{Name: "  "})
		assert.Error(t, err)

		when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		_, err = s.AddCashTransaction(ctx, "alice", domain.CashTransaction{
			AccountID: acct.ID, Kind: domain.CashDeposit, Amount: decimal.NewFromInt(1000), OccurredAt: when,
		})
		require.NoError(t, err)
		_, err = s.AddCashTransaction(ctx, "alice", domain.CashTransaction{
			AccountID: acct.ID, Kind: domain.CashWithdrawal, Amount: decimal.NewFromInt(250), OccurredAt: when.Add(time.Hour),
		})
		require.NoError(t, err)

		_, err = s.AddCashTransaction(ctx, "bob", domain.CashTransaction{
			AccountID: acct.ID, Kind: domain.CashDeposit, Amount: decimal.NewFromInt(1), OccurredAt: when,
		})
		assert.ErrorIs(t, err, ErrNotFound, "another user's account")

		accounts, err := s.ListAccounts(ctx, "alice")
		require.NoError(t, err)
		txs, err := s.ListCashTransactions(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.True(t, txs[0].OccurredAt.Equal(when))

		balances := domain.CashBalances(accounts, txs)
		require.Len(t, balances, 1)
		assert.True(t, balances[0].Balance.Equal(decimal.NewFromInt(750)))
	})
}

func runQuoteContract(t *testing.T, repo quote.Repository) {
	ctx := context.Background()

	_, err := repo.GetQuote(ctx, "PETR4")
	assert.ErrorIs(t, err, quote.ErrNotFound)

	require.NoError(t, repo.SaveQuote(ctx, "PETR4", decimal.RequireFromString("36.10")))
	require.NoError(t, repo.SaveQuote(ctx, "PETR4", decimal.RequireFromString("37.20")))
	require.NoError(t, repo.SaveQuote(ctx, "VALE3", decimal.RequireFromString("60")))

	q, err := repo.GetQuote(ctx, "PETR4")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("37.2")))
	assert.WithinDuration(t, time.Now(), q.UpdatedAt, time.Minute)

	all, err := repo.GetAllQuotes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "PETR4", all[0].Ticker)
}

func runSnapshotContract(t *testing.T, repo snapshot.Repository) {
	ctx := context.Background()

	_, err := repo.GetLatest(ctx, "carol")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, "carol", d1, json.RawMessage(`{"userId":"carol","totals":{"count":1}}`)))
	require.NoError(t, repo.Save(ctx, "carol", d2, json.RawMessage(`{"userId":"carol","totals":{"count":2}}`)))
	require.NoError(t, repo.Save(ctx, "carol", d2, json.RawMessage(`{"userId":"carol","totals":{"count":3}}`)))

	latest, err := repo.GetLatest(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, latest.SnapshotDate.Equal(d2))
	report, err := latest.Decode()
	require.NoError(t, err)
	assert.Equal(t, 3, report.Totals.Count, "same-day save replaces")

	byDate, err := repo.GetByDate(ctx, "carol", d1)
	require.NoError(t, err)
	assert.Equal(t, "carol", byDate.UserID)

	_, err = repo.GetByDate(ctx, "carol", d1.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	list, err := repo.List(ctx, "carol", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].SnapshotDate.After(list[1].SnapshotDate))
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, openTestSQLite(t))
}

func TestSQLiteQuotes(t *testing.T) {
	runQuoteContract(t, openTestSQLite(t))
}

func TestSQLiteSnapshots(t *testing.T) {
	runSnapshotContract(t, openTestSQLite(t).Snapshots())
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finpro.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.AppendTradeRecords(context.Background(), "alice", []ledger.RawRecord{{ID: "x", Fields: map[string]any{"ticker": "ITSA4"}}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	records, err := s.ListTradeRecords(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
