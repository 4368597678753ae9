package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stocklens/pkg/backoff"
	"stocklens/pkg/provider"
	"stocklens/pkg/stockcache"
)

type scriptedProvider struct {
	name  string
	fetch func(ticker string) (*provider.StockRecord, error)

	mu      sync.Mutex
	tickers []string
}

func (p *scriptedProvider) Name() string { return p.name }
func (p *scriptedProvider) FetchStock(_ context.Context, ticker string) (*provider.StockRecord, error) {
	p.mu.Lock()
	p.tickers = append(p.tickers, ticker)
	p.mu.Unlock()
	return p.fetch(ticker)
}

func succeedWith(name string) func(string) (*provider.StockRecord, error) {
	return func(ticker string) (*provider.StockRecord, error) {
		return &provider.StockRecord{
			Ticker:         provider.NormalizeTicker(ticker),
			CompanyName:    "Test Corp",
			Currency:       "USD",
			SourceProvider: name,
		}, nil
	}
}

func failWith(name string, kind provider.Kind) func(string) (*provider.StockRecord, error) {
	return func(ticker string) (*provider.StockRecord, error) {
		return nil, provider.Errorf(name, kind, "scripted failure for %s", ticker)
	}
}

func chainOf(providers ...*scriptedProvider) []provider.ChainEntry {
	entries := make([]provider.ChainEntry, 0, len(providers))
	for i, p := range providers {
		entries = append(entries, provider.ChainEntry{
			Name:     p.name,
			Priority: i + 1,
			Provider: p,
			Config:   &provider.ProviderConfig{BackoffBase: time.Minute},
		})
	}
	return entries
}

type stubResolver struct {
	candidates []string
	err        error
	calls      int
}

func (r *stubResolver) Resolve(context.Context, string) ([]string, error) {
	r.calls++
	return r.candidates, r.err
}

func newTestOrchestrator(chain []provider.ChainEntry, opts ...Option) (*Orchestrator, stockcache.Store, *backoff.Tracker) {
	cache := stockcache.NewMemory()
	tracker := backoff.NewTracker(backoff.NewMemoryStore())
	return New(chain, cache, tracker, opts...), cache, tracker
}

func TestEnrich_firstProviderWins(t *testing.T) {
	first := &scriptedProvider{name: "yahoo", fetch: succeedWith("yahoo")}
	second := &scriptedProvider{name: "fmp", fetch: succeedWith("fmp")}
	orch, cache, _ := newTestOrchestrator(chainOf(first, second))
	ctx := context.Background()

	rec, err := orch.Enrich(ctx, "geo")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if rec.SourceProvider != "yahoo" {
		t.Fatalf("SourceProvider = %q", rec.SourceProvider)
	}
	if rec.LastUpdated.IsZero() {
		t.Fatal("LastUpdated not stamped")
	}
	if len(second.tickers) != 0 {
		t.Fatal("chain must stop at the first success")
	}

	if _, ok, _ := cache.Get(ctx, "GEO"); !ok {
		t.Fatal("successful record must be cached")
	}
	status, ok, _ := orch.status.Get(ctx, "GEO")
	if !ok || status != StatusComplete {
		t.Fatalf("status = %s, %v; want complete", status, ok)
	}
}

func TestEnrich_fallsBackInPriorityOrder(t *testing.T) {
	first := &scriptedProvider{name: "yahoo", fetch: failWith("yahoo", provider.KindNotFound)}
	second := &scriptedProvider{name: "alphavantage", fetch: failWith("alphavantage", provider.KindRateLimited)}
	third := &scriptedProvider{name: "finnhub", fetch: succeedWith("finnhub")}
	orch, _, tracker := newTestOrchestrator(chainOf(first, second, third))
	ctx := context.Background()

	rec, err := orch.Enrich(ctx, "GEO")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if rec.SourceProvider != "finnhub" {
		t.Fatalf("SourceProvider = %q", rec.SourceProvider)
	}

	// Both upstream failures were recorded against the pair.
	if _, found, _ := tracker.Lookup(ctx, "GEO", "yahoo"); !found {
		t.Fatal("yahoo failure should be recorded")
	}
	if _, found, _ := tracker.Lookup(ctx, "GEO", "alphavantage"); !found {
		t.Fatal("alphavantage failure should be recorded")
	}
	if _, found, _ := tracker.Lookup(ctx, "GEO", "finnhub"); found {
		t.Fatal("successful provider must carry no failure record")
	}
}

func TestEnrich_cacheHitSkipsProviders(t *testing.T) {
	p := &scriptedProvider{name: "yahoo", fetch: succeedWith("yahoo")}
	orch, cache, _ := newTestOrchestrator(chainOf(p))
	ctx := context.Background()

	if err := cache.Put(ctx, &provider.StockRecord{
		Ticker: "GEO", CompanyName: "Cached Corp", SourceProvider: "fmp",
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	rec, err := orch.Enrich(ctx, "GEO")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if rec.CompanyName != "Cached Corp" {
		t.Fatalf("CompanyName = %q, want cache content", rec.CompanyName)
	}
	if len(p.tickers) != 0 {
		t.Fatal("cache hit must not contact providers")
	}
}

func TestEnrich_allFailAggregatesReasons(t *testing.T) {
	first := &scriptedProvider{name: "yahoo", fetch: failWith("yahoo", provider.KindNotFound)}
	second := &scriptedProvider{name: "fmp", fetch: failWith("fmp", provider.KindQuotaExceeded)}
	orch, cache, _ := newTestOrchestrator(chainOf(first, second))
	ctx := context.Background()

	_, err := orch.Enrich(ctx, "NOPE")
	var failure *AllProvidersFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want AllProvidersFailedError", err)
	}
	reasons := failure.Reasons()
	if reasons["yahoo"] != provider.KindNotFound || reasons["fmp"] != provider.KindQuotaExceeded {
		t.Fatalf("reasons = %v", reasons)
	}

	if _, ok, _ := cache.Get(ctx, "NOPE"); ok {
		t.Fatal("failed enrichment must not write to the cache")
	}
	status, _, _ := orch.status.Get(ctx, "NOPE")
	if status != StatusFailed {
		t.Fatalf("status = %s, want failed", status)
	}
}

func TestEnrich_backoffSkipsProvider(t *testing.T) {
	p := &scriptedProvider{name: "yahoo", fetch: succeedWith("yahoo")}
	orch, _, tracker := newTestOrchestrator(chainOf(p))
	ctx := context.Background()

	if _, err := tracker.RecordFailure(ctx, "GEO", "yahoo", time.Hour, "network_error"); err != nil {
		t.Fatalf("prefail: %v", err)
	}

	_, err := orch.Enrich(ctx, "GEO")
	var failure *AllProvidersFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want AllProvidersFailedError", err)
	}
	if len(p.tickers) != 0 {
		t.Fatal("provider inside its backoff window must be skipped")
	}
}

func TestTriggerRetry_bypassesBackoffOnce(t *testing.T) {
	p := &scriptedProvider{name: "yahoo", fetch: succeedWith("yahoo")}
	orch, _, tracker := newTestOrchestrator(chainOf(p))
	ctx := context.Background()

	if _, err := tracker.RecordFailure(ctx, "GEO", "yahoo", time.Hour, "network_error"); err != nil {
		t.Fatalf("prefail: %v", err)
	}

	rec, err := orch.TriggerRetry(ctx, "GEO")
	if err != nil {
		t.Fatalf("TriggerRetry: %v", err)
	}
	if rec.SourceProvider != "yahoo" {
		t.Fatalf("SourceProvider = %q", rec.SourceProvider)
	}
	if len(p.tickers) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(p.tickers))
	}
	// Success clears the failure streak entirely.
	if _, found, _ := tracker.Lookup(ctx, "GEO", "yahoo"); found {
		t.Fatal("failure record should be cleared after retry success")
	}
}

func TestEnrich_resolverRescuesUnknownTicker(t *testing.T) {
	p := &scriptedProvider{name: "yahoo", fetch: func(ticker string) (*provider.StockRecord, error) {
		if ticker == "GEO" {
			return succeedWith("yahoo")(ticker)
		}
		return nil, provider.Errorf("yahoo", provider.KindNotFound, "no result for %s", ticker)
	}}
	res := &stubResolver{candidates: []string{"GEO", "GEO:US"}}
	orch, cache, _ := newTestOrchestrator(chainOf(p), WithResolver(res))
	ctx := context.Background()

	rec, err := orch.Enrich(ctx, "GEO.US")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if rec.Ticker != "GEO" {
		t.Fatalf("Ticker = %q, want resolved symbol", rec.Ticker)
	}
	if res.calls != 1 {
		t.Fatalf("resolver calls = %d, want exactly 1", res.calls)
	}
	// Only the first candidate is retried.
	if len(p.tickers) != 2 || p.tickers[1] != "GEO" {
		t.Fatalf("provider saw %v", p.tickers)
	}
	if _, ok, _ := cache.Get(ctx, "GEO"); !ok {
		t.Fatal("resolved record must be cached under its real symbol")
	}
	status, _, _ := orch.status.Get(ctx, "GEO.US")
	if status != StatusComplete {
		t.Fatalf("status for original ticker = %s, want complete", status)
	}
}

func TestEnrich_resolverFailureEndsAttempt(t *testing.T) {
	p := &scriptedProvider{name: "yahoo", fetch: failWith("yahoo", provider.KindNotFound)}
	res := &stubResolver{err: errors.New("no candidate")}
	orch, _, _ := newTestOrchestrator(chainOf(p), WithResolver(res))

	_, err := orch.Enrich(context.Background(), "NOPE")
	var failure *AllProvidersFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want AllProvidersFailedError", err)
	}
	if failure.ResolvedTicker != "" {
		t.Fatalf("ResolvedTicker = %q, want empty", failure.ResolvedTicker)
	}
	if len(p.tickers) != 1 {
		t.Fatalf("provider calls = %d; resolver failure must not retraverse", len(p.tickers))
	}
}

func TestEnrich_manualStatusIsNeverOverwritten(t *testing.T) {
	p := &scriptedProvider{name: "yahoo", fetch: succeedWith("yahoo")}
	sink := NewMemoryStatusSink()
	sink.SetManual("GEO")
	orch, _, _ := newTestOrchestrator(chainOf(p), WithStatusSink(sink))

	if _, err := orch.Enrich(context.Background(), "GEO"); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	status, _, _ := sink.Get(context.Background(), "GEO")
	if status != StatusManual {
		t.Fatalf("status = %s, want manual to stick", status)
	}
}

func TestBulkEnrich(t *testing.T) {
	p := &scriptedProvider{name: "yahoo", fetch: func(ticker string) (*provider.StockRecord, error) {
		if ticker == "BAD" {
			return nil, provider.Errorf("yahoo", provider.KindNotFound, "no result for %s", ticker)
		}
		return succeedWith("yahoo")(ticker)
	}}
	orch, _, _ := newTestOrchestrator(chainOf(p))

	results := orch.BulkEnrich(context.Background(), []string{"aapl", "BAD", ""})
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (empty ticker dropped)", len(results))
	}
	if res := results["AAPL"]; res.Err != nil || res.Record == nil {
		t.Fatalf("AAPL result = %+v", res)
	}
	if res := results["BAD"]; res.Err == nil {
		t.Fatal("BAD should carry an error")
	}
}

func TestEnrich_emptyTicker(t *testing.T) {
	orch, _, _ := newTestOrchestrator(nil)
	if _, err := orch.Enrich(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty ticker")
	}
}
