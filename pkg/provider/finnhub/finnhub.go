// Package finnhub fetches company profiles from the Finnhub API.
// The free tier allows 60 calls per minute.
package finnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"stocklens/pkg/provider"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	defaultTimeout = 10 * time.Second
)

// Client resolves tickers against Finnhub.
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

// New constructs a Finnhub client.
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
	provider.Register("finnhub", func(name string, cfg *provider.ProviderConfig) (provider.Provider, error) {
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

type profileResponse struct {
	Name            string  `json:"name"`
	Ticker          string  `json:"ticker"`
	FinnhubIndustry string  `json:"finnhubIndustry"`
	Currency        string  `json:"currency"`
	MarketCap       float64 `json:"marketCapitalization"` // reported in millions
}

// FetchStock implements provider.Provider.
func (c *Client) FetchStock(ctx context.Context, ticker string) (*provider.StockRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/stock/profile2?symbol=" + url.QueryEscape(ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, provider.NewError(c.name, provider.KindInvalidResponse, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Finnhub-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Classify(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ClassifyStatus(c.name, resp.StatusCode)
	}

	var payload profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, provider.NewError(c.name, provider.KindInvalidResponse, err)
	}
	// Unknown symbols come back as an empty object.
	if payload.Name == "" {
		return nil, provider.Errorf(c.name, provider.KindNotFound, "no profile for %s", ticker)
	}

	currency := payload.Currency
	if currency == "" {
		currency = "USD"
	}

	return &provider.StockRecord{
		Ticker:         provider.NormalizeTicker(ticker),
		CompanyName:    payload.Name,
		Sector:         payload.FinnhubIndustry,
		Industry:       payload.FinnhubIndustry,
		Currency:       currency,
		MarketCap:      int64(payload.MarketCap * 1_000_000),
		SourceProvider: c.name,
	}, nil
}
