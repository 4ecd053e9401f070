package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchPriceDefaultPath(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"symbol":"PETR4","regularMarketPrice":36.12}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/quote/{ticker}", "$.results[0].regularMarketPrice", "secret", 0, 1)
	price, err := client.FetchPrice(context.Background(), "PETR4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.String() != "36.12" {
		t.Errorf("price = %s, want 36.12", price)
	}
	if gotPath != "/api/quote/PETR4" {
		t.Errorf("path = %q, want /api/quote/PETR4", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestFetchPriceStringAndWildcard(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"string value", "$.price", `{"price":"12.50"}`, "12.5"},
		{"wildcard takes first", "$.data[*].close", `{"data":[{"close":10.1},{"close":9.9}]}`, "10.1"},
		{"nested object", "$.quote.last", `{"quote":{"last":101}}`, "101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL+"/{ticker}", tt.path, "", 0, 0)
			price, err := client.FetchPrice(context.Background(), "XPML11")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if price.String() != tt.want {
				t.Errorf("price = %s, want %s", price, tt.want)
			}
		})
	}
}

func TestFetchPriceNoQuote(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":"not found"}`},
		{"missing key", http.StatusOK, `{"results":[]}`},
		{"null price", http.StatusOK, `{"results":[{"regularMarketPrice":null}]}`},
		{"zero price", http.StatusOK, `{"results":[{"regularMarketPrice":0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL+"/{ticker}", "$.results[0].regularMarketPrice", "", 0, 0)
			_, err := client.FetchPrice(context.Background(), "ABCD3")
			if !errors.Is(err, ErrNoQuote) {
				t.Errorf("error = %v, want ErrNoQuote", err)
			}
		})
	}
}

func TestFetchPriceRetryOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results":[{"regularMarketPrice":20}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/{ticker}", "$.results[0].regularMarketPrice", "", 10*time.Millisecond, 2)
	price, err := client.FetchPrice(context.Background(), "VALE3")
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if price.String() != "20" {
		t.Errorf("price = %s, want 20", price)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestFetchPriceRetriesExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/{ticker}", "$.price", "", 10*time.Millisecond, 2)
	_, err := client.FetchPrice(context.Background(), "VALE3")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestFetchPriceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad ticker"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/{ticker}", "$.price", "", 0, 3)
	_, err := client.FetchPrice(context.Background(), "VALE3")
	if err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if errors.Is(err, ErrNoQuote) {
		t.Error("HTTP 400 should not be reported as ErrNoQuote")
	}
}

func TestFetchPriceContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL+"/{ticker}", "$.price", "", time.Second, 3)
	_, err := client.FetchPrice(ctx, "VALE3")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestFetchPriceOversizedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":1,"pad":"` + strings.Repeat("x", maxResponseBytes) + `"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/{ticker}", "$.price", "", 0, 0)
	if _, err := client.FetchPrice(context.Background(), "PETR4"); err == nil {
		t.Fatal("expected error for oversized response")
	}
}
