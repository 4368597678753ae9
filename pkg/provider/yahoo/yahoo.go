// Package yahoo fetches company and price data from the Yahoo Finance
// quoteSummary endpoint. It is the only source in the chain that works
// without a credential.
package yahoo

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
	defaultBaseURL = "https://query1.finance.yahoo.com"
	defaultTimeout = 10 * time.Second
)

// Client resolves tickers against Yahoo Finance.
type Client struct {
	name       string
	baseURL    string
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

// New constructs a Yahoo Finance client.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func init() {
	provider.Register("yahoo", func(name string, cfg *provider.ProviderConfig) (provider.Provider, error) {
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return New(name, opts...), nil
	})
}

func (c *Client) Name() string { return c.name }

type rawValue struct {
	Raw json.Number `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			Price struct {
				LongName           string   `json:"longName"`
				ShortName          string   `json:"shortName"`
				Currency           string   `json:"currency"`
				MarketCap          rawValue `json:"marketCap"`
				RegularMarketPrice rawValue `json:"regularMarketPrice"`
				RegularMarketVol   rawValue `json:"regularMarketVolume"`
			} `json:"price"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// FetchStock implements provider.Provider.
func (c *Client) FetchStock(ctx context.Context, ticker string) (*provider.StockRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile,price",
		c.baseURL, url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, provider.NewError(c.name, provider.KindInvalidResponse, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "stocklens/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Classify(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ClassifyStatus(c.name, resp.StatusCode)
	}

	var payload quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, provider.NewError(c.name, provider.KindInvalidResponse, err)
	}
	if qerr := payload.QuoteSummary.Error; qerr != nil {
		return nil, provider.Errorf(c.name, provider.KindNotFound, "%s: %s", qerr.Code, qerr.Description)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return nil, provider.Errorf(c.name, provider.KindNotFound, "no result for %s", ticker)
	}

	result := payload.QuoteSummary.Result[0]
	name := result.Price.LongName
	if name == "" {
		name = result.Price.ShortName
	}
	currency := result.Price.Currency
	if currency == "" {
		currency = "USD"
	}

	record := &provider.StockRecord{
		Ticker:         provider.NormalizeTicker(ticker),
		CompanyName:    name,
		Sector:         result.AssetProfile.Sector,
		Industry:       result.AssetProfile.Industry,
		Currency:       currency,
		MarketCap:      numberToInt64(result.Price.MarketCap.Raw),
		Volume:         numberToInt64(result.Price.RegularMarketVol.Raw),
		Price:          numberToFloat64(result.Price.RegularMarketPrice.Raw),
		SourceProvider: c.name,
	}
	if !record.Complete() {
		return nil, provider.Errorf(c.name, provider.KindInvalidResponse, "no company name for %s", ticker)
	}
	return record, nil
}

func numberToInt64(n json.Number) int64 {
	v, err := n.Int64()
	if err != nil {
		if f, ferr := n.Float64(); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return v
}

func numberToFloat64(n json.Number) float64 {
	v, err := n.Float64()
	if err != nil {
		return 0
	}
	return v
}
