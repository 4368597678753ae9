package store

import (
	"context"
	"database/sql"
	"errors"

	"stocklens/internal/model"
	"stocklens/pkg/backoff"
)

var _ backoff.Store = (*FailureStore)(nil)

// FailureStore persists per-(ticker, provider) failure records in Postgres.
type FailureStore struct {
	model model.ProviderFailureModel
}

// NewFailureStore wires a durable failure store.
func NewFailureStore(m model.ProviderFailureModel) *FailureStore {
	return &FailureStore{model: m}
}

// Get implements backoff.Store.
func (s *FailureStore) Get(ctx context.Context, ticker, providerName string) (*backoff.Record, bool, error) {
	row, err := s.model.FindOne(ctx, ticker, providerName)
	if errors.Is(err, model.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &backoff.Record{
		Ticker:        row.Ticker,
		Provider:      row.Provider,
		FailureCount:  row.FailureCount,
		LastFailureAt: row.LastFailureAt,
		NextRetryAt:   row.NextRetryAt,
		Reason:        row.Reason.String,
	}, true, nil
}

// Put implements backoff.Store.
func (s *FailureStore) Put(ctx context.Context, rec *backoff.Record) error {
	return s.model.Upsert(ctx, &model.ProviderFailure{
		Ticker:        rec.Ticker,
		Provider:      rec.Provider,
		FailureCount:  rec.FailureCount,
		LastFailureAt: rec.LastFailureAt,
		NextRetryAt:   rec.NextRetryAt,
		Reason:        sql.NullString{String: rec.Reason, Valid: rec.Reason != ""},
	})
}

// Delete implements backoff.Store.
func (s *FailureStore) Delete(ctx context.Context, ticker, providerName string) error {
	return s.model.Delete(ctx, ticker, providerName)
}

// CountForProvider implements backoff.Store.
func (s *FailureStore) CountForProvider(ctx context.Context, providerName string) (int, error) {
	count, err := s.model.CountByProvider(ctx, providerName)
	return int(count), err
}
