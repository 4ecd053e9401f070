package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafhmansano/finpro/internal/domain"
)

func TestReadTradesAliasesAndSynonyms(t *testing.T) {
	records := []RawRecord{
		{ID: "t1", Seq: 1, Fields: map[string]any{
			"Ativo": "petr4", "Tipo": "Compra", "Quantidade": "100", "Preço": "10,50", "Taxas": "1,20", "Data": "15/03/2024",
		}},
		{ID: "t2", Seq: 2, Fields: map[string]any{
			"ticker": "PETR4", "side": "sell", "quantity": 40.0, "unitPrice": 12.0, "occurredAt": "2024-04-01",
		}},
		{ID: "t3", Seq: 3, Fields: map[string]any{
			"symbol": "VALE3", "operação": "V", "qty": 5, "price": "60", "data_operacao": "2024-04-02T10:00:00Z",
		}},
	}

	events, warnings := ReadTrades(records)
	require.Empty(t, warnings)
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, "PETR4", first.Ticker)
	assert.Equal(t, domain.SideBuy, first.Side)
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.UnitPrice.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, first.Fees.Equal(decimal.RequireFromString("1.2")))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), first.OccurredAt)

	assert.Equal(t, domain.SideSell, events[1].Side)
	assert.True(t, events[1].Fees.IsZero())
	assert.Equal(t, domain.SideSell, events[2].Side)
	assert.Equal(t, "VALE3", events[2].Ticker)
}

func TestReadTradesInsertionOrderFollowsSeq(t *testing.T) {
	records := []RawRecord{
		{ID: "b", Seq: 20, Fields: map[string]any{"ticker": "X", "side": "buy", "quantity": 1, "price": 1, "date": "2024-01-01"}},
		{ID: "a", Seq: 10, Fields: map[string]any{"ticker": "X", "side": "buy", "quantity": 1, "price": 1, "date": "2024-01-01"}},
	}

	events, _ := ReadTrades(records)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.Less(t, events[0].InsertionOrder, events[1].InsertionOrder)
}

func TestReadTradesSkipsMalformed(t *testing.T) {
	records := []RawRecord{
		{ID: "no-ticker", Seq: 1, Fields: map[string]any{"side": "buy", "quantity": 1, "price": 1, "date": "2024-01-01"}},
		{ID: "bad-side", Seq: 2, Fields: map[string]any{"ticker": "X", "side": "hold", "quantity": 1, "price": 1, "date": "2024-01-01"}},
		{ID: "bad-qty", Seq: 3, Fields: map[string]any{"ticker": "X", "side": "buy", "quantity": "lots", "price": 1, "date": "2024-01-01"}},
		{ID: "bad-date", Seq: 4, Fields: map[string]any{"ticker": "X", "side": "buy", "quantity": 1, "price": 1, "date": "yesterday"}},
		{ID: "ok", Seq: 5, Fields: map[string]any{"ticker": "X", "side": "buy", "quantity": 1, "price": 1, "date": "2024-01-01"}},
	}

	events, warnings := ReadTrades(records)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].ID)
	require.Len(t, warnings, 4)
	for _, w := range warnings {
		assert.Equal(t, domain.WarningMalformed, w.Kind)
	}
	assert.Equal(t, "X", warnings[1].Ticker)
}

func TestReadTradesTimestampObject(t *testing.T) {
	records := []RawRecord{
		{ID: "t", Seq: 1, Fields: map[string]any{
			"ticker": "ITSA4", "side": "C", "quantity": 10, "price": 9,
			"date": map[string]any{"seconds": float64(1704067200), "nanoseconds": 0},
		}},
	}

	events, warnings := ReadTrades(records)
	require.Empty(t, warnings)
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), events[0].OccurredAt)
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Side
		ok    bool
	}{
		{"BUY", domain.SideBuy, true},
		{"compra", domain.SideBuy, true},
		{" c ", domain.SideBuy, true},
		{"Venda", domain.SideSell, true},
		{"v", domain.SideSell, true},
		{"alienação", domain.SideSell, true},
		{"split", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseSide(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadDividends(t *testing.T) {
	records := []RawRecord{
		{ID: "d1", Seq: 1, Fields: map[string]any{"Ativo": "TAEE11", "Tipo": "JCP", "Valor": "12,34", "Data Pagamento": "10/01/2024"}},
		{ID: "d2", Seq: 2, Fields: map[string]any{"ticker": "HGLG11", "category": "Rendimento", "amount": 8.5, "paidOn": "2024-02-15"}},
		{ID: "d3", Seq: 3, Fields: map[string]any{"ticker": "ITSA4", "amount": 3, "paidOn": "2024-02-20"}},
		{ID: "", Seq: 4, Fields: map[string]any{"ticker": "ITSA4", "amount": 1, "paidOn": "2024-02-21"}},
		{ID: "d5", Seq: 5, Fields: map[string]any{"ticker": "ITSA4", "category": "bonus", "amount": 1, "paidOn": "2024-02-21"}},
		{ID: "d6", Seq: 6, Fields: map[string]any{"ticker": "ITSA4", "amount": "-1", "paidOn": "2024-02-21"}},
	}

	events, warnings := ReadDividends(records)
	require.Len(t, events, 4)
	require.Len(t, warnings, 2)

	assert.Equal(t, domain.DividendCategoryInterestOnEquity, events[0].Category)
	assert.True(t, events[0].Amount.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), events[0].PaidOn)
	assert.Equal(t, domain.DividendCategoryFundDistribution, events[1].Category)
	assert.Equal(t, domain.DividendCategoryDividend, events[2].Category)
	assert.Equal(t, "seq:4", events[3].ID)

	assert.Equal(t, "d5", warnings[0].RecordID)
	assert.Equal(t, "d6", warnings[1].RecordID)
}

func TestIsDateField(t *testing.T) {
	assert.True(t, IsDateField("Data Operação"))
	assert.True(t, IsDateField("paidOn"))
	assert.False(t, IsDateField("Quantidade"))
}
