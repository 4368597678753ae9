// Package store provides the database-backed implementations of the narrow
// store interfaces consumed by the enrichment engine: the 7-day stock cache,
// failure records, quota counters and status snapshots. All of them survive
// process restarts; a Redis hot layer absorbs repeated reads.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "stocklens/internal/cache"
	"stocklens/internal/model"
	"stocklens/pkg/provider"
	"stocklens/pkg/stockcache"
)

var _ stockcache.Store = (*CacheStore)(nil)

// CacheStore persists stock records in Postgres with a msgpack-encoded Redis
// copy in front. Expired rows are treated as misses and evicted lazily.
type CacheStore struct {
	model  model.StockCacheModel
	rds    *redis.Redis
	ttl    time.Duration
	hotTTL time.Duration
	nowFn  func() time.Time
}

// CacheStoreOption customises a CacheStore.
type CacheStoreOption func(*CacheStore)

// WithClock injects a clock for deterministic expiry tests.
func WithClock(nowFn func() time.Time) CacheStoreOption {
	return func(s *CacheStore) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// WithTTL overrides the rolling freshness window.
func WithTTL(ttl time.Duration) CacheStoreOption {
	return func(s *CacheStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithHotTTL overrides the lifetime of the Redis hot copy.
func WithHotTTL(ttl time.Duration) CacheStoreOption {
	return func(s *CacheStore) {
		if ttl > 0 {
			s.hotTTL = ttl
		}
	}
}

// NewCacheStore wires a durable cache store. rds may be nil.
func NewCacheStore(m model.StockCacheModel, rds *redis.Redis, opts ...CacheStoreOption) *CacheStore {
	s := &CacheStore{
		model:  m,
		rds:    rds,
		ttl:    stockcache.DefaultTTL,
		hotTTL: cachekeys.StockRecordTTL(),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements stockcache.Store.
func (s *CacheStore) Get(ctx context.Context, ticker string) (*provider.StockRecord, bool, error) {
	key := provider.NormalizeTicker(ticker)

	if rec, ok := s.getHot(ctx, key); ok {
		return rec, true, nil
	}

	row, err := s.model.FindOne(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !s.nowFn().Before(row.ExpiresAt) {
		// Past expiry: report a miss and drop the stale row.
		if derr := s.model.Delete(ctx, key); derr != nil {
			logx.WithContext(ctx).Errorf("cache: evict %s: %v", key, derr)
		}
		return nil, false, nil
	}

	rec := rowToRecord(row)
	s.setHot(ctx, key, rec, row.ExpiresAt)
	return rec, true, nil
}

// Put implements stockcache.Store.
func (s *CacheStore) Put(ctx context.Context, rec *provider.StockRecord) error {
	now := s.nowFn()
	key := provider.NormalizeTicker(rec.Ticker)
	row := recordToRow(rec)
	row.Ticker = key
	row.FetchedAt = now
	row.ExpiresAt = now.Add(s.ttl)
	if err := s.model.Upsert(ctx, row); err != nil {
		return err
	}
	s.setHot(ctx, key, rec, row.ExpiresAt)
	return nil
}

func (s *CacheStore) getHot(ctx context.Context, key string) (*provider.StockRecord, bool) {
	if s.rds == nil {
		return nil, false
	}
	raw, err := s.rds.GetCtx(ctx, cachekeys.StockRecordKey(key))
	if err != nil || raw == "" {
		return nil, false
	}
	var rec provider.StockRecord
	if err := msgpack.Unmarshal([]byte(raw), &rec); err != nil {
		logx.WithContext(ctx).Errorf("cache: decode hot %s: %v", key, err)
		return nil, false
	}
	return &rec, true
}

func (s *CacheStore) setHot(ctx context.Context, key string, rec *provider.StockRecord, expiresAt time.Time) {
	if s.rds == nil {
		return
	}
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		logx.WithContext(ctx).Errorf("cache: encode hot %s: %v", key, err)
		return
	}
	ttl := s.hotTTL
	if remaining := time.Until(expiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	if err := s.rds.SetexCtx(ctx, cachekeys.StockRecordKey(key), string(raw), int(ttl.Seconds())); err != nil {
		logx.WithContext(ctx).Errorf("cache: set hot %s: %v", key, err)
	}
}

func rowToRecord(row *model.StockCache) *provider.StockRecord {
	return &provider.StockRecord{
		Ticker:         row.Ticker,
		CompanyName:    row.CompanyName,
		Sector:         row.Sector.String,
		Industry:       row.Industry.String,
		Currency:       row.Currency,
		MarketCap:      row.MarketCap.Int64,
		Volume:         row.Volume.Int64,
		Price:          row.Price.Float64,
		LastUpdated:    row.FetchedAt,
		SourceProvider: row.SourceProvider,
	}
}

func recordToRow(rec *provider.StockRecord) *model.StockCache {
	return &model.StockCache{
		Ticker:         rec.Ticker,
		CompanyName:    rec.CompanyName,
		Sector:         nullString(rec.Sector),
		Industry:       nullString(rec.Industry),
		Currency:       rec.Currency,
		MarketCap:      sql.NullInt64{Int64: rec.MarketCap, Valid: true},
		Volume:         sql.NullInt64{Int64: rec.Volume, Valid: true},
		Price:          sql.NullFloat64{Float64: rec.Price, Valid: true},
		SourceProvider: rec.SourceProvider,
	}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
