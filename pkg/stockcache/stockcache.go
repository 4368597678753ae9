// Package stockcache defines the enrichment cache contract: last-known stock
// records held for a rolling TTL window. Reads never return an entry past its
// expiry; expired entries count as misses and may be evicted lazily.
package stockcache

import (
	"context"
	"time"

	"stocklens/pkg/provider"
)

// DefaultTTL is the rolling freshness window for cached records.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the narrow cache interface the orchestrator depends on.
type Store interface {
	// Get returns the cached record for a ticker, or found=false on miss or
	// when the entry has expired.
	Get(ctx context.Context, ticker string) (*provider.StockRecord, bool, error)
	// Put overwrites the entry for rec.Ticker, stamping a fresh expiry.
	// It is idempotent.
	Put(ctx context.Context, rec *provider.StockRecord) error
}
