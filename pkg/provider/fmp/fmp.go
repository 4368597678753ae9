// Package fmp fetches company profiles from Financial Modeling Prep.
// The free tier allows 250 requests per day.
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stocklens/pkg/provider"
)

const (
	defaultBaseURL = "https://financialmodelingprep.com/api/v3"
	defaultTimeout = 10 * time.Second
)

// Client resolves tickers against Financial Modeling Prep.
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

// New constructs a Financial Modeling Prep client.
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
	provider.Register("fmp", func(name string, cfg *provider.ProviderConfig) (provider.Provider, error) {
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

type profile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	Currency    string  `json:"currency"`
	MktCap      int64   `json:"mktCap"`
	VolAvg      int64   `json:"volAvg"`
	Price       float64 `json:"price"`
}

// FetchStock implements provider.Provider.
func (c *Client) FetchStock(ctx context.Context, ticker string) (*provider.StockRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/profile/%s?apikey=%s",
		c.baseURL, url.PathEscape(ticker), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

	var payload []profile
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, provider.NewError(c.name, provider.KindInvalidResponse, err)
	}
	if len(payload) == 0 {
		return nil, provider.Errorf(c.name, provider.KindNotFound, "no profile for %s", ticker)
	}

	p := payload[0]
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	record := &provider.StockRecord{
		Ticker:         provider.NormalizeTicker(ticker),
		CompanyName:    p.CompanyName,
		Sector:         p.Sector,
		Industry:       p.Industry,
		Currency:       currency,
		MarketCap:      p.MktCap,
		Volume:         p.VolAvg,
		Price:          p.Price,
		SourceProvider: c.name,
	}
	if !record.Complete() {
		return nil, provider.Errorf(c.name, provider.KindInvalidResponse, "no company name for %s", ticker)
	}
	return record, nil
}
