package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ProviderOutcome records how one provider fared during an enrichment attempt.
type ProviderOutcome struct {
	Provider string `json:"provider"`
	Outcome  string `json:"outcome"` // "success" or a taxonomy kind
	Detail   string `json:"detail,omitempty"`
}

// AttemptRecord captures an end-to-end enrichment attempt for audit and
// diagnostics.
type AttemptRecord struct {
	Timestamp      time.Time         `json:"timestamp"`
	Ticker         string            `json:"ticker"`
	ResolvedTicker string            `json:"resolved_ticker,omitempty"`
	Providers      []ProviderOutcome `json:"providers,omitempty"`
	SourceProvider string            `json:"source_provider,omitempty"`
	Success        bool              `json:"success"`
	DurationMs     int64             `json:"duration_ms"`
	ErrorMessage   string            `json:"error_message,omitempty"`
}

// Writer persists attempt records to a directory as JSON files.
type Writer struct {
	dir   string
	mu    sync.Mutex
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteAttempt writes an attempt record to a timestamped JSON file.
func (w *Writer) WriteAttempt(rec *AttemptRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()
	name := fmt.Sprintf("enrich_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
