package handler

import (
	"time"

	"stocklens/pkg/provider"
)

type TickerPathReq struct {
	Ticker string `path:"ticker"`
}

type BulkEnrichReq struct {
	Tickers []string `json:"tickers"`
}

type StockResp struct {
	Ticker         string    `json:"ticker"`
	CompanyName    string    `json:"company_name"`
	Sector         string    `json:"sector,omitempty"`
	Industry       string    `json:"industry,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	MarketCap      int64     `json:"market_cap,omitempty"`
	Volume         int64     `json:"volume,omitempty"`
	Price          float64   `json:"price,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
	SourceProvider string    `json:"source_provider"`
}

type EnrichFailureResp struct {
	Ticker         string            `json:"ticker"`
	ResolvedTicker string            `json:"resolved_ticker,omitempty"`
	Reasons        map[string]string `json:"reasons"`
	Message        string            `json:"message"`
}

type BulkEnrichResp struct {
	Results map[string]BulkEntryResp `json:"results"`
}

type BulkEntryResp struct {
	Stock *StockResp `json:"stock,omitempty"`
	Error string     `json:"error,omitempty"`
}

type StatusResp struct {
	Ticker string `json:"ticker"`
	Status string `json:"status"`
}

type ProviderStatusResp struct {
	Providers []ProviderEntryResp `json:"providers"`
}

type ProviderEntryResp struct {
	Name           string           `json:"name"`
	Priority       int              `json:"priority"`
	MinInterval    string           `json:"min_interval,omitempty"`
	Quotas         []QuotaUsageResp `json:"quotas,omitempty"`
	ActiveBackoffs int              `json:"active_backoffs"`
}

type QuotaUsageResp struct {
	Period string `json:"period"`
	Limit  int    `json:"limit"`
	Used   int    `json:"used"`
}

func stockResp(rec *provider.StockRecord) *StockResp {
	return &StockResp{
		Ticker:         rec.Ticker,
		CompanyName:    rec.CompanyName,
		Sector:         rec.Sector,
		Industry:       rec.Industry,
		Currency:       rec.Currency,
		MarketCap:      rec.MarketCap,
		Volume:         rec.Volume,
		Price:          rec.Price,
		LastUpdated:    rec.LastUpdated,
		SourceProvider: rec.SourceProvider,
	}
}
