// Package backoff tracks per-(ticker, provider) failures and computes when a
// failing pair becomes eligible for another attempt. Delay grows
// exponentially with a capped exponent and is keyed to a provider-specific
// base so quota-scarce sources back off in hours while fast ones retry in
// seconds.
package backoff

import (
	"context"
	"time"
)

// DefaultExponentCap bounds the number of doublings applied to the base delay.
const DefaultExponentCap = 6

// Record captures the failure state for one (ticker, provider) pair.
type Record struct {
	Ticker        string
	Provider      string
	FailureCount  int
	LastFailureAt time.Time
	NextRetryAt   time.Time
	Reason        string
}

// Store persists failure records. Get returns found=false when no record
// exists for the pair.
type Store interface {
	Get(ctx context.Context, ticker, providerName string) (*Record, bool, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, ticker, providerName string) error
	// CountForProvider returns how many tickers currently hold a failure
	// record against the provider.
	CountForProvider(ctx context.Context, providerName string) (int, error)
}

// Tracker applies the backoff policy on top of a Store.
type Tracker struct {
	store       Store
	exponentCap int
	nowFn       func() time.Time
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock injects a clock for deterministic tests.
func WithClock(nowFn func() time.Time) Option {
	return func(t *Tracker) {
		if nowFn != nil {
			t.nowFn = nowFn
		}
	}
}

// WithExponentCap overrides the doubling cap.
func WithExponentCap(cap int) Option {
	return func(t *Tracker) {
		if cap >= 0 {
			t.exponentCap = cap
		}
	}
}

// NewTracker constructs a tracker over the given store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		exponentCap: DefaultExponentCap,
		nowFn:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Delay computes the backoff delay for the given consecutive failure count.
func Delay(base time.Duration, failureCount, exponentCap int) time.Duration {
	if failureCount < 1 {
		return 0
	}
	exp := failureCount - 1
	if exp > exponentCap {
		exp = exponentCap
	}
	return base << uint(exp)
}

// Eligible reports whether the pair may be attempted now: true when no record
// exists or the retry time has passed.
func (t *Tracker) Eligible(ctx context.Context, ticker, providerName string) (bool, error) {
	rec, found, err := t.store.Get(ctx, ticker, providerName)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return !t.nowFn().Before(rec.NextRetryAt), nil
}

// RecordFailure increments the failure count and advances the next retry
// time. The returned record reflects the new state.
func (t *Tracker) RecordFailure(ctx context.Context, ticker, providerName string, base time.Duration, reason string) (*Record, error) {
	rec, found, err := t.store.Get(ctx, ticker, providerName)
	if err != nil {
		return nil, err
	}
	if !found {
		rec = &Record{Ticker: ticker, Provider: providerName}
	}
	now := t.nowFn()
	rec.FailureCount++
	rec.LastFailureAt = now
	rec.NextRetryAt = now.Add(Delay(base, rec.FailureCount, t.exponentCap))
	rec.Reason = reason
	if err := t.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordSuccess clears the failure state for the pair.
func (t *Tracker) RecordSuccess(ctx context.Context, ticker, providerName string) error {
	return t.store.Delete(ctx, ticker, providerName)
}

// Lookup exposes the raw record for status reporting.
func (t *Tracker) Lookup(ctx context.Context, ticker, providerName string) (*Record, bool, error) {
	return t.store.Get(ctx, ticker, providerName)
}

// ActiveFailures reports how many tickers are currently backing off against
// the provider.
func (t *Tracker) ActiveFailures(ctx context.Context, providerName string) (int, error) {
	return t.store.CountForProvider(ctx, providerName)
}
