package cache

import (
	"strings"
	"time"
)

// Namespace is the Redis key prefix for the stocklens application.
const Namespace = "stocklens"

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// StockRecordKey holds the msgpack-encoded hot copy of a cached stock record.
func StockRecordKey(ticker string) string {
	return formatKey("stock", strings.ToUpper(ticker))
}

// StockRecordTTL bounds the Redis copy. The durable 7-day window lives in
// Postgres; the hot copy only needs to absorb request bursts.
func StockRecordTTL() time.Duration {
	return 15 * time.Minute
}
