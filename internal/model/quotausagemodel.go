package model

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ QuotaUsageModel = (*defaultQuotaUsageModel)(nil)

type (
	// QuotaUsageModel persists quota counters keyed by (provider, period,
	// window_start) so caps survive process restarts.
	QuotaUsageModel interface {
		Usage(ctx context.Context, provider, period string, windowStart time.Time) (int, error)
		Increment(ctx context.Context, provider, period string, windowStart time.Time) error
	}

	// QuotaUsage mirrors the quota_usage table.
	QuotaUsage struct {
		Provider    string    `db:"provider"`
		Period      string    `db:"period"`
		WindowStart time.Time `db:"window_start"`
		Used        int       `db:"used"`
	}

	defaultQuotaUsageModel struct {
		conn sqlx.SqlConn
	}
)

// NewQuotaUsageModel returns a model for the quota_usage table.
func NewQuotaUsageModel(conn sqlx.SqlConn) QuotaUsageModel {
	return &defaultQuotaUsageModel{conn: conn}
}

func (m *defaultQuotaUsageModel) Usage(ctx context.Context, provider, period string, windowStart time.Time) (int, error) {
	const query = `SELECT used FROM quota_usage WHERE provider = $1 AND period = $2 AND window_start = $3 LIMIT 1`
	var used int
	err := m.conn.QueryRowCtx(ctx, &used, query, provider, period, windowStart)
	switch err {
	case nil:
		return used, nil
	case sqlx.ErrNotFound:
		return 0, nil
	default:
		return 0, err
	}
}

func (m *defaultQuotaUsageModel) Increment(ctx context.Context, provider, period string, windowStart time.Time) error {
	const stmt = `
INSERT INTO quota_usage (provider, period, window_start, used)
VALUES ($1, $2, $3, 1)
ON CONFLICT (provider, period, window_start) DO UPDATE SET
    used = quota_usage.used + 1;`
	_, err := m.conn.ExecCtx(ctx, stmt, provider, period, windowStart)
	return err
}
