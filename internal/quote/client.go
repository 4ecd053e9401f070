package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when the provider has no usable price for a ticker.
var ErrNoQuote = errors.New("no quote available")

// maxResponseBytes bounds a provider response body.
const maxResponseBytes = 1 << 20

// Client fetches prices from an HTTP quote provider. The endpoint is a URL
// template containing {ticker}; the price is extracted with a JSONPath expression.
type Client struct {
	urlTemplate string
	pricePath   string
	token       string
	httpClient  *http.Client
	delay       time.Duration
	maxRetries  int
}

// NewClient creates a new quote provider client.
func NewClient(urlTemplate, pricePath, token string, delay time.Duration, maxRetries int) *Client {
	return &Client{
		urlTemplate: urlTemplate,
		pricePath:   pricePath,
		token:       token,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		delay:       delay,
		maxRetries:  maxRetries,
	}
}

// FetchPrice returns the current price of ticker.
func (c *Client) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	endpoint := strings.ReplaceAll(c.urlTemplate, "{ticker}", url.PathEscape(ticker))

	body, err := c.fetchWithRetry(ctx, endpoint)
	if err != nil {
		return decimal.Zero, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return decimal.Zero, fmt.Errorf("parsing quote response for %s: %w", ticker, err)
	}

	v, err := jsonpath.Get(c.pricePath, doc)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrNoQuote, ticker, err)
	}
	// Wildcard and filter expressions return a list; the first match is the price.
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return decimal.Zero, fmt.Errorf("%w: %s: empty result", ErrNoQuote, ticker)
		}
		v = list[0]
	}

	price, err := priceValue(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrNoQuote, ticker, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price %s", ErrNoQuote, ticker, price)
	}
	return price, nil
}

func priceValue(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case json.Number:
		return decimal.NewFromString(x.String())
	case nil:
		return decimal.Zero, errors.New("null price")
	}
	return decimal.Zero, fmt.Errorf("unexpected price type %T", v)
}

func (c *Client) fetchWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 2 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating quote request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("quote request failed: %w", err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading quote response: %w", err)
		}
		if len(body) > maxResponseBytes {
			return nil, fmt.Errorf("quote response exceeds %d bytes", maxResponseBytes)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNoQuote
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("quote provider HTTP %d (attempt %d/%d)", resp.StatusCode, attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("quote provider HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
