package enrich

import (
	"context"
	"sync"
)

// Status is the per-ticker enrichment state machine value.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	// StatusManual is a terminal state set only by explicit user override.
	// Sinks must never let the orchestrator overwrite it.
	StatusManual Status = "manual"
)

// StatusSink receives state-machine transitions driven by enrichment
// outcomes. attemptDelta is added to the stored attempt counter.
type StatusSink interface {
	Update(ctx context.Context, ticker string, status Status, attemptDelta int, lastError string) error
	Get(ctx context.Context, ticker string) (Status, bool, error)
}

// MemoryStatusSink keeps statuses in process memory.
type MemoryStatusSink struct {
	mu       sync.Mutex
	statuses map[string]Status
	attempts map[string]int
	lastErr  map[string]string
}

// NewMemoryStatusSink constructs an empty in-memory sink.
func NewMemoryStatusSink() *MemoryStatusSink {
	return &MemoryStatusSink{
		statuses: make(map[string]Status),
		attempts: make(map[string]int),
		lastErr:  make(map[string]string),
	}
}

// Update implements StatusSink. A ticker in StatusManual stays there.
func (s *MemoryStatusSink) Update(_ context.Context, ticker string, status Status, attemptDelta int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses[ticker] == StatusManual {
		return nil
	}
	s.statuses[ticker] = status
	s.attempts[ticker] += attemptDelta
	s.lastErr[ticker] = lastError
	return nil
}

// Get implements StatusSink.
func (s *MemoryStatusSink) Get(_ context.Context, ticker string) (Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[ticker]
	return status, ok, nil
}

// SetManual marks a ticker as manually curated; the orchestrator will not
// change it afterwards.
func (s *MemoryStatusSink) SetManual(ticker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[ticker] = StatusManual
}
