// Package enrich composes cache, rate-limited providers, failure tracking
// and optional symbol resolution into a single enrichment workflow.
package enrich

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/sync/errgroup"

	"stocklens/pkg/backoff"
	"stocklens/pkg/journal"
	"stocklens/pkg/provider"
	"stocklens/pkg/stockcache"
)

// defaultBackoffBase applies when a provider config carries no backoff_base.
const defaultBackoffBase = 15 * time.Minute

// bulkConcurrency bounds parallel enrichments in BulkEnrich. Providers are
// still serialized by their shared limiters regardless of this value.
const bulkConcurrency = 8

// CandidateResolver proposes alternate symbols for an unresolved ticker.
type CandidateResolver interface {
	Resolve(ctx context.Context, ticker string) ([]string, error)
}

// Orchestrator owns the enrichment workflow. Distinct tickers may be
// enriched concurrently; cross-request coordination happens inside the
// per-provider rate limiters and the shared stores.
type Orchestrator struct {
	chain    []provider.ChainEntry
	cache    stockcache.Store
	tracker  *backoff.Tracker
	resolver CandidateResolver
	status   StatusSink
	journal  *journal.Writer
	nowFn    func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithResolver enables the last-resort symbol resolution step.
func WithResolver(r CandidateResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithStatusSink wires the enrichment status state machine.
func WithStatusSink(s StatusSink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.status = s
		}
	}
}

// WithJournal enables attempt auditing.
func WithJournal(w *journal.Writer) Option {
	return func(o *Orchestrator) { o.journal = w }
}

// WithClock injects a clock for deterministic tests.
func WithClock(nowFn func() time.Time) Option {
	return func(o *Orchestrator) {
		if nowFn != nil {
			o.nowFn = nowFn
		}
	}
}

// New constructs an orchestrator over an already-built provider chain. The
// chain must be gated by rate limiters and ordered by priority.
func New(chain []provider.ChainEntry, cache stockcache.Store, tracker *backoff.Tracker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		chain:   chain,
		cache:   cache,
		tracker: tracker,
		status:  NewMemoryStatusSink(),
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enrich returns fresh data for a ticker: cache first, then the provider
// chain, then one resolver-assisted retraversal. On exhaustion it returns an
// *AllProvidersFailedError carrying the per-provider breakdown.
func (o *Orchestrator) Enrich(ctx context.Context, ticker string) (*provider.StockRecord, error) {
	return o.enrich(ctx, ticker, false)
}

// TriggerRetry re-runs enrichment for one ticker, bypassing its backoff
// eligibility checks once. Other tickers' backoff state is untouched.
func (o *Orchestrator) TriggerRetry(ctx context.Context, ticker string) (*provider.StockRecord, error) {
	return o.enrich(ctx, ticker, true)
}

// GetCached returns the cached record without contacting any provider.
func (o *Orchestrator) GetCached(ctx context.Context, ticker string) (*provider.StockRecord, bool, error) {
	return o.cache.Get(ctx, provider.NormalizeTicker(ticker))
}

// Result pairs one bulk enrichment outcome with its error, if any.
type Result struct {
	Record *provider.StockRecord
	Err    error
}

// BulkEnrich fans out Enrich over distinct tickers. Calls to the same
// provider remain spaced by its shared rate limiter.
func (o *Orchestrator) BulkEnrich(ctx context.Context, tickers []string) map[string]Result {
	results := make(map[string]Result, len(tickers))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, t := range tickers {
		ticker := provider.NormalizeTicker(t)
		if ticker == "" {
			continue
		}
		g.Go(func() error {
			rec, err := o.Enrich(ctx, ticker)
			mu.Lock()
			results[ticker] = Result{Record: rec, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) enrich(ctx context.Context, rawTicker string, bypassBackoff bool) (*provider.StockRecord, error) {
	ticker := provider.NormalizeTicker(rawTicker)
	if ticker == "" {
		return nil, errors.New("enrich: empty ticker")
	}

	if rec, ok, err := o.cache.Get(ctx, ticker); err != nil {
		logx.WithContext(ctx).Errorf("enrich: cache read %s: %v", ticker, err)
	} else if ok {
		return rec, nil
	}

	start := o.nowFn()
	o.updateStatus(ctx, ticker, StatusInProgress, 1, "")

	var attempts []Attempt
	rec := o.traverse(ctx, ticker, bypassBackoff, &attempts)

	resolvedTicker := ""
	if rec == nil && o.resolver != nil {
		// Last resort: one resolution, one fresh traversal. Resolver
		// failures end the attempt without touching any provider state.
		candidates, err := o.resolver.Resolve(ctx, ticker)
		if err != nil {
			logx.WithContext(ctx).Infof("enrich: resolver gave no candidate for %s: %v", ticker, err)
		} else if len(candidates) > 0 {
			resolvedTicker = candidates[0]
			logx.WithContext(ctx).Infof("enrich: retrying %s as %s", ticker, resolvedTicker)
			rec = o.traverse(ctx, resolvedTicker, bypassBackoff, &attempts)
		}
	}

	if rec != nil {
		if err := o.cache.Put(ctx, rec); err != nil {
			logx.WithContext(ctx).Errorf("enrich: cache write %s: %v", rec.Ticker, err)
		}
		o.updateStatus(ctx, ticker, StatusComplete, 0, "")
		o.writeJournal(ticker, resolvedTicker, rec.SourceProvider, attempts, true, start, "")
		return rec, nil
	}

	failure := &AllProvidersFailedError{
		Ticker:         ticker,
		ResolvedTicker: resolvedTicker,
		Attempts:       attempts,
	}
	// Cache is deliberately left untouched: any prior valid data stays
	// queryable while the ticker sits in the failed state.
	o.updateStatus(ctx, ticker, StatusFailed, 0, failure.Error())
	o.writeJournal(ticker, resolvedTicker, "", attempts, false, start, failure.Error())
	return nil, failure
}

// traverse walks the provider chain in priority order for one ticker,
// returning the first complete record. Every failure is absorbed, recorded
// in the failure tracker and appended to attempts.
func (o *Orchestrator) traverse(ctx context.Context, ticker string, bypassBackoff bool, attempts *[]Attempt) *provider.StockRecord {
	for _, entry := range o.chain {
		if !bypassBackoff {
			eligible, err := o.tracker.Eligible(ctx, ticker, entry.Name)
			if err != nil {
				logx.WithContext(ctx).Errorf("enrich: eligibility %s/%s: %v", ticker, entry.Name, err)
			} else if !eligible {
				continue
			}
		}

		rec, err := entry.Provider.FetchStock(ctx, ticker)
		if err == nil && rec.Complete() {
			if serr := o.tracker.RecordSuccess(ctx, ticker, entry.Name); serr != nil {
				logx.WithContext(ctx).Errorf("enrich: clear failures %s/%s: %v", ticker, entry.Name, serr)
			}
			rec.LastUpdated = o.nowFn()
			return rec
		}
		if err == nil {
			err = provider.Errorf(entry.Name, provider.KindInvalidResponse, "incomplete record for %s", ticker)
		}

		kind, ok := provider.KindOf(err)
		if !ok {
			kind = provider.KindNetworkError
		}
		*attempts = append(*attempts, Attempt{Provider: entry.Name, Ticker: ticker, Kind: kind, Err: err})
		logx.WithContext(ctx).Infof("enrich: %s failed for %s: %v", entry.Name, ticker, err)

		base := entry.Config.BackoffBase
		if base <= 0 {
			base = defaultBackoffBase
		}
		if _, ferr := o.tracker.RecordFailure(ctx, ticker, entry.Name, base, string(kind)); ferr != nil {
			logx.WithContext(ctx).Errorf("enrich: record failure %s/%s: %v", ticker, entry.Name, ferr)
		}
	}
	return nil
}

func (o *Orchestrator) updateStatus(ctx context.Context, ticker string, status Status, attemptDelta int, lastError string) {
	if err := o.status.Update(ctx, ticker, status, attemptDelta, lastError); err != nil {
		logx.WithContext(ctx).Errorf("enrich: status %s -> %s: %v", ticker, status, err)
	}
}

func (o *Orchestrator) writeJournal(ticker, resolvedTicker, source string, attempts []Attempt, success bool, start time.Time, errMsg string) {
	if o.journal == nil {
		return
	}
	outcomes := make([]journal.ProviderOutcome, 0, len(attempts)+1)
	for _, a := range attempts {
		detail := ""
		if a.Err != nil {
			detail = a.Err.Error()
		}
		outcomes = append(outcomes, journal.ProviderOutcome{
			Provider: a.Provider,
			Outcome:  string(a.Kind),
			Detail:   detail,
		})
	}
	if success && source != "" {
		outcomes = append(outcomes, journal.ProviderOutcome{Provider: source, Outcome: "success"})
	}
	if _, err := o.journal.WriteAttempt(&journal.AttemptRecord{
		Ticker:         ticker,
		ResolvedTicker: resolvedTicker,
		Providers:      outcomes,
		SourceProvider: source,
		Success:        success,
		DurationMs:     o.nowFn().Sub(start).Milliseconds(),
		ErrorMessage:   errMsg,
	}); err != nil {
		logx.Errorf("enrich: journal %s: %v", ticker, err)
	}
}
