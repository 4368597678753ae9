package provider

import "context"

// Provider is a single external market-data source able to resolve one ticker
// per call. Implementations translate source-specific failures into *Error
// values from the shared taxonomy.
type Provider interface {
	// Name returns the configured provider name used for failure tracking
	// and record tagging.
	Name() string
	// FetchStock fetches company/price data for one ticker.
	FetchStock(ctx context.Context, ticker string) (*StockRecord, error)
}
