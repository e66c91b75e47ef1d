// Package polygon wraps the polygon.io last-trade endpoint used to
// mark positions and orders.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.polygon.io"

// Client fetches last-trade prices over REST. Calls are paced so a
// burst of risk checks cannot exhaust the provider quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client; baseURL may be empty to use the
// production endpoint.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(50), 100),
	}
}

// LastTrade returns the last traded price for ticker.
func (c *Client) LastTrade(ctx context.Context, ticker string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	params := url.Values{}
	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
	}
	u := fmt.Sprintf("%s/v2/last/trade/%s", c.baseURL, url.PathEscape(ticker))
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("polygon last trade %s status %d: %s", ticker, res.StatusCode, string(body))
	}

	var resp struct {
		Results struct {
			Price float64 `json:"price"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode last trade for %s: %w", ticker, err)
	}
	return resp.Results.Price, nil
}
