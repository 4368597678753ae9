package provider

import (
	"strings"
	"time"
)

// StockRecord is an immutable snapshot of company and price data for a single
// ticker. Records are replaced wholesale on refresh, never mutated in place.
type StockRecord struct {
	Ticker         string    `json:"ticker" msgpack:"ticker" db:"ticker"`
	CompanyName    string    `json:"company_name" msgpack:"company_name" db:"company_name"`
	Sector         string    `json:"sector,omitempty" msgpack:"sector" db:"sector"`
	Industry       string    `json:"industry,omitempty" msgpack:"industry" db:"industry"`
	Currency       string    `json:"currency" msgpack:"currency" db:"currency"`
	MarketCap      int64     `json:"market_cap,omitempty" msgpack:"market_cap" db:"market_cap"`
	Volume         int64     `json:"volume,omitempty" msgpack:"volume" db:"volume"`
	Price          float64   `json:"price,omitempty" msgpack:"price" db:"price"`
	LastUpdated    time.Time `json:"last_updated" msgpack:"last_updated" db:"last_updated"`
	SourceProvider string    `json:"source_provider" msgpack:"source_provider" db:"source_provider"`
}

// Complete reports whether the record carries enough structure to be usable.
// A response without a company name is treated as invalid upstream data.
func (r *StockRecord) Complete() bool {
	return r != nil && strings.TrimSpace(r.CompanyName) != ""
}

// NormalizeTicker canonicalises a ticker symbol: trimmed, uppercase.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
