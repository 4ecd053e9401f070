package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type mockQuoteRepo struct {
	mu     sync.Mutex
	quotes map[string]Quote
	saves  int
}

func newMockQuoteRepo() *mockQuoteRepo {
	return &mockQuoteRepo{quotes: make(map[string]Quote)}
}

func (m *mockQuoteRepo) SaveQuote(_ context.Context, ticker string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[ticker] = Quote{Ticker: ticker, Price: price, UpdatedAt: time.Now()}
	m.saves++
	return nil
}

func (m *mockQuoteRepo) GetQuote(_ context.Context, ticker string) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[ticker]
	if !ok {
		return Quote{}, ErrNotFound
	}
	return q, nil
}

func (m *mockQuoteRepo) GetAllQuotes(_ context.Context) ([]Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Quote
	for _, q := range m.quotes {
		result = append(result, q)
	}
	return result, nil
}

type mockFetcher struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (m *mockFetcher) FetchPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return decimal.Zero, m.err
	}
	p, ok := m.prices[ticker]
	if !ok {
		return decimal.Zero, ErrNoQuote
	}
	return p, nil
}

func TestLookupPriceFetchesAndStores(t *testing.T) {
	repo := newMockQuoteRepo()
	fetcher := &mockFetcher{prices: map[string]decimal.Decimal{"PETR4": decimal.RequireFromString("36.5")}}
	svc := NewService(fetcher, repo, time.Hour, 2)

	price, ok, err := svc.LookupPrice(context.Background(), " petr4 ")
	if err != nil || !ok {
		t.Fatalf("LookupPrice = ok %v, err %v", ok, err)
	}
	if !price.Equal(decimal.RequireFromString("36.5")) {
		t.Errorf("price = %s, want 36.5", price)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}

	// Second call is served from cache.
	if _, _, err := svc.LookupPrice(context.Background(), "PETR4"); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
}

func TestLookupPriceFreshStoredQuote(t *testing.T) {
	repo := newMockQuoteRepo()
	repo.quotes["VALE3"] = Quote{Ticker: "VALE3", Price: decimal.NewFromInt(60), UpdatedAt: time.Now()}
	fetcher := &mockFetcher{}
	svc := NewService(fetcher, repo, time.Hour, 2)

	price, ok, err := svc.LookupPrice(context.Background(), "VALE3")
	if err != nil || !ok {
		t.Fatalf("LookupPrice = ok %v, err %v", ok, err)
	}
	if !price.Equal(decimal.NewFromInt(60)) {
		t.Errorf("price = %s, want 60", price)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0 for a fresh stored quote", fetcher.calls)
	}
}

func TestLookupPriceStaleQuoteFallback(t *testing.T) {
	repo := newMockQuoteRepo()
	repo.quotes["VALE3"] = Quote{Ticker: "VALE3", Price: decimal.NewFromInt(60), UpdatedAt: time.Now().Add(-2 * time.Hour)}
	fetcher := &mockFetcher{err: errors.New("provider down")}
	svc := NewService(fetcher, repo, time.Hour, 2)

	price, ok, err := svc.LookupPrice(context.Background(), "VALE3")
	if err != nil || !ok {
		t.Fatalf("LookupPrice = ok %v, err %v", ok, err)
	}
	if !price.Equal(decimal.NewFromInt(60)) {
		t.Errorf("price = %s, want stale 60", price)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
}

func TestLookupPriceUnknownTicker(t *testing.T) {
	svc := NewService(&mockFetcher{}, newMockQuoteRepo(), time.Hour, 2)

	_, ok, err := svc.LookupPrice(context.Background(), "XXXX3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for unknown ticker")
	}
}

func TestLookupPriceProviderErrorWithoutStoredQuote(t *testing.T) {
	svc := NewService(&mockFetcher{err: errors.New("boom")}, newMockQuoteRepo(), time.Hour, 2)

	_, ok, err := svc.LookupPrice(context.Background(), "XXXX3")
	if err == nil {
		t.Fatal("expected error")
	}
	if ok {
		t.Error("expected ok=false")
	}
}

func TestLookupPriceWithoutFetcherServesStale(t *testing.T) {
	repo := newMockQuoteRepo()
	repo.quotes["ITSA4"] = Quote{Ticker: "ITSA4", Price: decimal.NewFromInt(10), UpdatedAt: time.Now().Add(-48 * time.Hour)}
	svc := NewService(nil, repo, time.Hour, 2)

	price, ok, err := svc.LookupPrice(context.Background(), "ITSA4")
	if err != nil || !ok {
		t.Fatalf("LookupPrice = ok %v, err %v", ok, err)
	}
	if !price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("price = %s, want 10", price)
	}

	_, ok, err = svc.LookupPrice(context.Background(), "MISSING")
	if err != nil || ok {
		t.Errorf("missing ticker = ok %v, err %v; want false, nil", ok, err)
	}
}

func TestPrices(t *testing.T) {
	fetcher := &mockFetcher{prices: map[string]decimal.Decimal{
		"PETR4":  decimal.NewFromInt(36),
		"HGLG11": decimal.NewFromInt(160),
	}}
	svc := NewService(fetcher, newMockQuoteRepo(), time.Hour, 2)

	prices := svc.Prices(context.Background(), []string{"PETR4", "HGLG11", "NONE3"})
	if len(prices) != 2 {
		t.Fatalf("len(prices) = %d, want 2", len(prices))
	}
	if !prices["HGLG11"].Equal(decimal.NewFromInt(160)) {
		t.Errorf("HGLG11 = %s, want 160", prices["HGLG11"])
	}
	if _, ok := prices["NONE3"]; ok {
		t.Error("NONE3 should be absent")
	}
}

func TestFetchAndStoreQuotes(t *testing.T) {
	repo := newMockQuoteRepo()
	fetcher := &mockFetcher{prices: map[string]decimal.Decimal{
		"PETR4": decimal.NewFromInt(36),
		"VALE3": decimal.NewFromInt(60),
	}}
	svc := NewService(fetcher, repo, time.Hour, 2)

	if err := svc.FetchAndStoreQuotes(context.Background(), []string{"PETR4", "VALE3", "NONE3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	quotes, _ := svc.Quotes(context.Background())
	if len(quotes) != 2 {
		t.Errorf("stored quotes = %d, want 2", len(quotes))
	}
}

func TestFetchAndStoreQuotesAllFailed(t *testing.T) {
	svc := NewService(&mockFetcher{err: errors.New("down")}, newMockQuoteRepo(), time.Hour, 2)

	if err := svc.FetchAndStoreQuotes(context.Background(), []string{"PETR4"}); err == nil {
		t.Error("expected error when every fetch fails")
	}
	if err := NewService(nil, newMockQuoteRepo(), time.Hour, 2).FetchAndStoreQuotes(context.Background(), []string{"PETR4"}); err == nil {
		t.Error("expected error without a provider")
	}
}

func TestNewServicePanicsOnNilRepo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewService(nil, nil, time.Hour, 1)
}
