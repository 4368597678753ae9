package svc

import (
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"stocklens/internal/config"
	"stocklens/internal/enrich"
	"stocklens/internal/model"
	"stocklens/internal/store"
	"stocklens/pkg/backoff"
	"stocklens/pkg/journal"
	providerpkg "stocklens/pkg/provider"
	_ "stocklens/pkg/provider/alphavantage"
	_ "stocklens/pkg/provider/finnhub"
	_ "stocklens/pkg/provider/fmp"
	_ "stocklens/pkg/provider/yahoo"
	"stocklens/pkg/ratelimit"
	resolverpkg "stocklens/pkg/resolver"
	"stocklens/pkg/stockcache"
)

type ServiceContext struct {
	Config config.Config

	// Chain holds the rate-limited providers in priority order.
	Chain    []providerpkg.ChainEntry
	Limiters map[string]*ratelimit.Limiter

	Cache    stockcache.Store
	Tracker  *backoff.Tracker
	Status   enrich.StatusSink
	Resolver *resolverpkg.Resolver

	Orchestrator *enrich.Orchestrator

	// Optional durable layers; nil without a DSN / Redis host.
	DBConn               sqlx.SqlConn
	Redis                *redis.Redis
	StockCacheModel      model.StockCacheModel
	ProviderFailureModel model.ProviderFailureModel
	QuotaUsageModel      model.QuotaUsageModel
	EnrichmentStatus     model.EnrichmentStatusModel
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config:   c,
		Limiters: make(map[string]*ratelimit.Limiter),
	}

	if c.Redis.Host != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		svc.Redis = rds
	}

	var quotaStore ratelimit.QuotaStore = ratelimit.NewMemoryQuotaStore()
	var failureStore backoff.Store = backoff.NewMemoryStore()
	svc.Cache = stockcache.NewMemory(stockcache.WithTTL(cacheTTL(c)))
	svc.Status = enrich.NewMemoryStatusSink()

	// Durable stores replace the in-memory fallbacks when a DSN is present
	// so quotas, failures and the cache survive restarts.
	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.StockCacheModel = model.NewStockCacheModel(conn)
		svc.ProviderFailureModel = model.NewProviderFailureModel(conn)
		svc.QuotaUsageModel = model.NewQuotaUsageModel(conn)
		svc.EnrichmentStatus = model.NewEnrichmentStatusModel(conn)

		quotaStore = store.NewQuotaStore(svc.QuotaUsageModel)
		failureStore = store.NewFailureStore(svc.ProviderFailureModel)
		svc.Cache = store.NewCacheStore(svc.StockCacheModel, svc.Redis,
			store.WithTTL(cacheTTL(c)),
			store.WithHotTTL(time.Duration(c.Cache.RedisTTLSeconds)*time.Second))
		svc.Status = store.NewStatusSink(svc.EnrichmentStatus)
	}

	svc.Tracker = backoff.NewTracker(failureStore)

	if c.Providers.Value == nil {
		log.Fatal("no providers configured")
	}
	chain, err := c.Providers.Value.BuildChain()
	if err != nil {
		log.Fatalf("failed to build provider chain: %v", err)
	}
	for i := range chain {
		entry := &chain[i]
		limiter := ratelimit.New(entry.Name, entry.Config.MinInterval, quotasFor(entry.Config), quotaStore)
		svc.Limiters[entry.Name] = limiter
		entry.Provider = providerpkg.WithLimiter(entry.Provider, limiter)
	}
	svc.Chain = chain

	opts := []enrich.Option{enrich.WithStatusSink(svc.Status)}
	if c.Resolver.Value != nil && c.Resolver.Value.Enabled() {
		r, err := resolverpkg.New(c.Resolver.Value)
		if err != nil {
			log.Fatalf("failed to init resolver: %v", err)
		}
		svc.Resolver = r
		opts = append(opts, enrich.WithResolver(r))
	}
	if c.JournalDir != "" {
		opts = append(opts, enrich.WithJournal(journal.NewWriter(c.JournalDir)))
	}
	svc.Orchestrator = enrich.New(chain, svc.Cache, svc.Tracker, opts...)

	return svc
}

func cacheTTL(c config.Config) time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

func quotasFor(pc *providerpkg.ProviderConfig) []ratelimit.Quota {
	var quotas []ratelimit.Quota
	if pc.PerMinuteQuota > 0 {
		quotas = append(quotas, ratelimit.Quota{Period: ratelimit.PeriodMinute, Limit: pc.PerMinuteQuota})
	}
	if pc.DailyQuota > 0 {
		quotas = append(quotas, ratelimit.Quota{Period: ratelimit.PeriodDay, Limit: pc.DailyQuota})
	}
	return quotas
}
