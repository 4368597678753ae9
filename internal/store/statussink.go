package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stocklens/internal/enrich"
	"stocklens/internal/model"
)

var _ enrich.StatusSink = (*StatusSink)(nil)

// StatusSink persists the enrichment state machine in Postgres.
type StatusSink struct {
	model model.EnrichmentStatusModel
	nowFn func() time.Time
}

// NewStatusSink wires a durable status sink.
func NewStatusSink(m model.EnrichmentStatusModel) *StatusSink {
	return &StatusSink{model: m, nowFn: time.Now}
}

// Update implements enrich.StatusSink. A ticker already marked manual keeps
// its state; manual overrides outrank automated transitions.
func (s *StatusSink) Update(ctx context.Context, ticker string, status enrich.Status, attemptDelta int, lastError string) error {
	attempts := attemptDelta
	row, err := s.model.FindOne(ctx, ticker)
	switch {
	case err == nil:
		if enrich.Status(row.Status) == enrich.StatusManual {
			return nil
		}
		attempts = row.Attempts + attemptDelta
	case errors.Is(err, model.ErrNotFound):
	default:
		return err
	}
	return s.model.Upsert(ctx, &model.EnrichmentStatus{
		Ticker:    ticker,
		Status:    string(status),
		Attempts:  attempts,
		LastError: sql.NullString{String: lastError, Valid: lastError != ""},
		UpdatedAt: s.nowFn(),
	})
}

// Get implements enrich.StatusSink.
func (s *StatusSink) Get(ctx context.Context, ticker string) (enrich.Status, bool, error) {
	row, err := s.model.FindOne(ctx, ticker)
	if errors.Is(err, model.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return enrich.Status(row.Status), true, nil
}

// SetManual marks a ticker as manually curated.
func (s *StatusSink) SetManual(ctx context.Context, ticker string) error {
	return s.model.Upsert(ctx, &model.EnrichmentStatus{
		Ticker:    ticker,
		Status:    string(enrich.StatusManual),
		UpdatedAt: s.nowFn(),
	})
}
