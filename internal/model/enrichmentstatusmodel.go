package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ EnrichmentStatusModel = (*defaultEnrichmentStatusModel)(nil)

type (
	// EnrichmentStatusModel persists the per-ticker enrichment state machine.
	EnrichmentStatusModel interface {
		FindOne(ctx context.Context, ticker string) (*EnrichmentStatus, error)
		Upsert(ctx context.Context, row *EnrichmentStatus) error
	}

	// EnrichmentStatus mirrors the enrichment_status table.
	EnrichmentStatus struct {
		Ticker    string         `db:"ticker"`
		Status    string         `db:"status"`
		Attempts  int            `db:"attempts"`
		LastError sql.NullString `db:"last_error"`
		UpdatedAt time.Time      `db:"updated_at"`
	}

	defaultEnrichmentStatusModel struct {
		conn sqlx.SqlConn
	}
)

// NewEnrichmentStatusModel returns a model for the enrichment_status table.
func NewEnrichmentStatusModel(conn sqlx.SqlConn) EnrichmentStatusModel {
	return &defaultEnrichmentStatusModel{conn: conn}
}

func (m *defaultEnrichmentStatusModel) FindOne(ctx context.Context, ticker string) (*EnrichmentStatus, error) {
	const query = `SELECT ticker, status, attempts, last_error, updated_at
FROM enrichment_status WHERE ticker = $1 LIMIT 1`
	var row EnrichmentStatus
	err := m.conn.QueryRowCtx(ctx, &row, query, ticker)
	switch err {
	case nil:
		return &row, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultEnrichmentStatusModel) Upsert(ctx context.Context, row *EnrichmentStatus) error {
	const stmt = `
INSERT INTO enrichment_status (ticker, status, attempts, last_error, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (ticker) DO UPDATE SET
    status = EXCLUDED.status,
    attempts = EXCLUDED.attempts,
    last_error = EXCLUDED.last_error,
    updated_at = EXCLUDED.updated_at;`
	_, err := m.conn.ExecCtx(ctx, stmt,
		row.Ticker,
		row.Status,
		row.Attempts,
		row.LastError,
		row.UpdatedAt,
	)
	return err
}
