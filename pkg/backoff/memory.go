package backoff

import (
	"context"
	"sync"
)

// MemoryStore keeps failure records in process memory for tests and
// deployments without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore constructs an empty in-memory failure store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func pairKey(ticker, providerName string) string {
	return ticker + "|" + providerName
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, ticker, providerName string) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[pairKey(ticker, providerName)]
	if !ok {
		return nil, false, nil
	}
	copied := rec
	return &copied, true, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[pairKey(rec.Ticker, rec.Provider)] = *rec
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, ticker, providerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, pairKey(ticker, providerName))
	return nil
}

// CountForProvider implements Store.
func (s *MemoryStore) CountForProvider(_ context.Context, providerName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.records {
		if rec.Provider == providerName {
			count++
		}
	}
	return count, nil
}
