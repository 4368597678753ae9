package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ ProviderFailureModel = (*defaultProviderFailureModel)(nil)

type (
	// ProviderFailureModel persists per-(ticker, provider) backoff state.
	ProviderFailureModel interface {
		FindOne(ctx context.Context, ticker, provider string) (*ProviderFailure, error)
		Upsert(ctx context.Context, row *ProviderFailure) error
		Delete(ctx context.Context, ticker, provider string) error
		CountByProvider(ctx context.Context, provider string) (int64, error)
	}

	// ProviderFailure mirrors the provider_failures table.
	ProviderFailure struct {
		Ticker        string         `db:"ticker"`
		Provider      string         `db:"provider"`
		FailureCount  int            `db:"failure_count"`
		LastFailureAt time.Time      `db:"last_failure_at"`
		NextRetryAt   time.Time      `db:"next_retry_at"`
		Reason        sql.NullString `db:"reason"`
	}

	defaultProviderFailureModel struct {
		conn sqlx.SqlConn
	}
)

// NewProviderFailureModel returns a model for the provider_failures table.
func NewProviderFailureModel(conn sqlx.SqlConn) ProviderFailureModel {
	return &defaultProviderFailureModel{conn: conn}
}

func (m *defaultProviderFailureModel) FindOne(ctx context.Context, ticker, provider string) (*ProviderFailure, error) {
	const query = `SELECT ticker, provider, failure_count, last_failure_at, next_retry_at, reason
FROM provider_failures WHERE ticker = $1 AND provider = $2 LIMIT 1`
	var row ProviderFailure
	err := m.conn.QueryRowCtx(ctx, &row, query, ticker, provider)
	switch err {
	case nil:
		return &row, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultProviderFailureModel) Upsert(ctx context.Context, row *ProviderFailure) error {
	const stmt = `
INSERT INTO provider_failures (ticker, provider, failure_count, last_failure_at, next_retry_at, reason)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (ticker, provider) DO UPDATE SET
    failure_count = EXCLUDED.failure_count,
    last_failure_at = EXCLUDED.last_failure_at,
    next_retry_at = EXCLUDED.next_retry_at,
    reason = EXCLUDED.reason;`
	_, err := m.conn.ExecCtx(ctx, stmt,
		row.Ticker,
		row.Provider,
		row.FailureCount,
		row.LastFailureAt,
		row.NextRetryAt,
		row.Reason,
	)
	return err
}

func (m *defaultProviderFailureModel) Delete(ctx context.Context, ticker, provider string) error {
	_, err := m.conn.ExecCtx(ctx, `DELETE FROM provider_failures WHERE ticker = $1 AND provider = $2`, ticker, provider)
	return err
}

func (m *defaultProviderFailureModel) CountByProvider(ctx context.Context, provider string) (int64, error) {
	var count int64
	err := m.conn.QueryRowCtx(ctx, &count, `SELECT COUNT(*) FROM provider_failures WHERE provider = $1`, provider)
	if err != nil {
		return 0, err
	}
	return count, nil
}
