package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ StockCacheModel = (*defaultStockCacheModel)(nil)

type (
	// StockCacheModel persists cached stock records with a rolling expiry.
	StockCacheModel interface {
		FindOne(ctx context.Context, ticker string) (*StockCache, error)
		Upsert(ctx context.Context, row *StockCache) error
		Delete(ctx context.Context, ticker string) error
		DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	}

	// StockCache mirrors the stock_cache table.
	StockCache struct {
		Ticker         string         `db:"ticker"`
		CompanyName    string         `db:"company_name"`
		Sector         sql.NullString `db:"sector"`
		Industry       sql.NullString `db:"industry"`
		Currency       string         `db:"currency"`
		MarketCap      sql.NullInt64  `db:"market_cap"`
		Volume         sql.NullInt64  `db:"volume"`
		Price          sql.NullFloat64 `db:"price"`
		SourceProvider string         `db:"source_provider"`
		FetchedAt      time.Time      `db:"fetched_at"`
		ExpiresAt      time.Time      `db:"expires_at"`
	}

	defaultStockCacheModel struct {
		conn sqlx.SqlConn
	}
)

// NewStockCacheModel returns a model for the stock_cache table.
func NewStockCacheModel(conn sqlx.SqlConn) StockCacheModel {
	return &defaultStockCacheModel{conn: conn}
}

func (m *defaultStockCacheModel) FindOne(ctx context.Context, ticker string) (*StockCache, error) {
	const query = `SELECT ticker, company_name, sector, industry, currency, market_cap, volume, price, source_provider, fetched_at, expires_at
FROM stock_cache WHERE ticker = $1 LIMIT 1`
	var row StockCache
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

func (m *defaultStockCacheModel) Upsert(ctx context.Context, row *StockCache) error {
	const stmt = `
INSERT INTO stock_cache (
    ticker, company_name, sector, industry, currency, market_cap, volume, price, source_provider, fetched_at, expires_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (ticker) DO UPDATE SET
    company_name = EXCLUDED.company_name,
    sector = EXCLUDED.sector,
    industry = EXCLUDED.industry,
    currency = EXCLUDED.currency,
    market_cap = EXCLUDED.market_cap,
    volume = EXCLUDED.volume,
    price = EXCLUDED.price,
    source_provider = EXCLUDED.source_provider,
    fetched_at = EXCLUDED.fetched_at,
    expires_at = EXCLUDED.expires_at;`
	_, err := m.conn.ExecCtx(ctx, stmt,
		row.Ticker,
		row.CompanyName,
		row.Sector,
		row.Industry,
		row.Currency,
		row.MarketCap,
		row.Volume,
		row.Price,
		row.SourceProvider,
		row.FetchedAt,
		row.ExpiresAt,
	)
	return err
}

func (m *defaultStockCacheModel) Delete(ctx context.Context, ticker string) error {
	_, err := m.conn.ExecCtx(ctx, `DELETE FROM stock_cache WHERE ticker = $1`, ticker)
	return err
}

func (m *defaultStockCacheModel) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := m.conn.ExecCtx(ctx, `DELETE FROM stock_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
