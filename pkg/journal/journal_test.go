package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteAttempt(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = func() time.Time {
		return time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	}

	path, err := w.WriteAttempt(&AttemptRecord{
		Ticker:         "GEO.US",
		ResolvedTicker: "GEO",
		Providers: []ProviderOutcome{
			{Provider: "yahoo", Outcome: "not_found"},
			{Provider: "finnhub", Outcome: "success"},
		},
		SourceProvider: "finnhub",
		Success:        true,
		DurationMs:     412,
	})
	if err != nil {
		t.Fatalf("WriteAttempt: %v", err)
	}
	if want := filepath.Join(dir, "enrich_20250102_093000_00001.json"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	var rec AttemptRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("unmarshal journal: %v", err)
	}
	if rec.Ticker != "GEO.US" || rec.ResolvedTicker != "GEO" || !rec.Success {
		t.Fatalf("record = %+v", rec)
	}
	if len(rec.Providers) != 2 {
		t.Fatalf("providers = %d", len(rec.Providers))
	}
}

func TestWriteAttempt_sequenceAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	fixed := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	w.nowFn = func() time.Time { return fixed }

	first, err := w.WriteAttempt(&AttemptRecord{Ticker: "A"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := w.WriteAttempt(&AttemptRecord{Ticker: "B"})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first == second {
		t.Fatal("same-second attempts must land in distinct files")
	}
}

func TestWriteAttempt_nilRecord(t *testing.T) {
	w := NewWriter(t.TempDir())
	if _, err := w.WriteAttempt(nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}
