package store

import (
	"context"
	"time"

	"stocklens/internal/model"
	"stocklens/pkg/ratelimit"
)

var _ ratelimit.QuotaStore = (*QuotaStore)(nil)

// QuotaStore persists quota usage counters in Postgres so daily and
// per-minute caps survive redeploys.
type QuotaStore struct {
	model model.QuotaUsageModel
}

// NewQuotaStore wires a durable quota store.
func NewQuotaStore(m model.QuotaUsageModel) *QuotaStore {
	return &QuotaStore{model: m}
}

// Usage implements ratelimit.QuotaStore.
func (s *QuotaStore) Usage(ctx context.Context, provider string, period ratelimit.Period, windowStart time.Time) (int, error) {
	return s.model.Usage(ctx, provider, string(period), windowStart)
}

// Increment implements ratelimit.QuotaStore.
func (s *QuotaStore) Increment(ctx context.Context, provider string, period ratelimit.Period, windowStart time.Time) error {
	return s.model.Increment(ctx, provider, string(period), windowStart)
}
