// Package alphavantage fetches company overviews from the Alpha Vantage API.
// The free tier allows 25 requests per day with 12 seconds between calls, so
// this source sits behind a daily quota and a long per-call spacing.
package alphavantage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stocklens/pkg/provider"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	defaultTimeout = 10 * time.Second
)

// Client resolves tickers against Alpha Vantage.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default endpoint URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New constructs an Alpha Vantage client.
func New(name, apiKey string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func init() {
	provider.Register("alphavantage", func(name string, cfg *provider.ProviderConfig) (provider.Provider, error) {
		if cfg.APIKey == "" {
			return nil, provider.ErrNoCredential
		}
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return New(name, cfg.APIKey, opts...), nil
	})
}

func (c *Client) Name() string { return c.name }

type overviewResponse struct {
	Symbol       string `json:"Symbol"`
	Name         string `json:"Name"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	Currency     string `json:"Currency"`
	MarketCap    string `json:"MarketCapitalization"`
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// FetchStock implements provider.Provider.
func (c *Client) FetchStock(ctx context.Context, ticker string) (*provider.StockRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("function", "OVERVIEW")
	query.Set("symbol", ticker)
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, provider.NewError(c.name, provider.KindInvalidResponse, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Classify(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ClassifyStatus(c.name, resp.StatusCode)
	}

	var payload overviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, provider.NewError(c.name, provider.KindInvalidResponse, err)
	}

	// Alpha Vantage reports throttling inside a 200 response.
	if payload.Note != "" || payload.Information != "" {
		return nil, provider.Errorf(c.name, provider.KindRateLimited, "api throttled for %s", ticker)
	}
	if payload.ErrorMessage != "" {
		return nil, provider.Errorf(c.name, provider.KindNotFound, "%s", payload.ErrorMessage)
	}
	if payload.Symbol == "" {
		return nil, provider.Errorf(c.name, provider.KindNotFound, "no overview for %s", ticker)
	}

	currency := payload.Currency
	if currency == "" {
		currency = "USD"
	}
	var marketCap int64
	if payload.MarketCap != "" {
		marketCap, _ = strconv.ParseInt(payload.MarketCap, 10, 64)
	}

	record := &provider.StockRecord{
		Ticker:         provider.NormalizeTicker(ticker),
		CompanyName:    payload.Name,
		Sector:         payload.Sector,
		Industry:       payload.Industry,
		Currency:       currency,
		MarketCap:      marketCap,
		SourceProvider: c.name,
	}
	if !record.Complete() {
		return nil, provider.Errorf(c.name, provider.KindInvalidResponse, "no company name for %s", ticker)
	}
	return record, nil
}
