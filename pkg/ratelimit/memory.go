package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryQuotaStore keeps usage counters in process memory. It backs tests and
// deployments without a database; counters reset on restart.
type MemoryQuotaStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryQuotaStore constructs an empty in-memory quota store.
func NewMemoryQuotaStore() *MemoryQuotaStore {
	return &MemoryQuotaStore{counts: make(map[string]int)}
}

func quotaKey(provider string, period Period, windowStart time.Time) string {
	return fmt.Sprintf("%s|%s|%d", provider, period, windowStart.UTC().Unix())
}

// Usage implements QuotaStore.
func (s *MemoryQuotaStore) Usage(_ context.Context, provider string, period Period, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[quotaKey(provider, period, windowStart)], nil
}

// Increment implements QuotaStore. Counters for windows that have already
// closed are dropped so a long-lived process does not grow the map without
// bound.
func (s *MemoryQuotaStore) Increment(_ context.Context, provider string, period Period, windowStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := quotaKey(provider, period, windowStart)
	prefix := fmt.Sprintf("%s|%s|", provider, period)
	for key := range s.counts {
		if key != current && strings.HasPrefix(key, prefix) {
			delete(s.counts, key)
		}
	}
	s.counts[current]++
	return nil
}
