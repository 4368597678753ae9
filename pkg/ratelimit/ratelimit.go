// Package ratelimit enforces per-provider call spacing and quota ceilings.
//
// Each provider owns one Limiter. All concurrent fetches targeting that
// provider serialize through it, so the minimum-interval invariant holds
// globally rather than per caller. Quota usage lives behind a QuotaStore so
// counters survive process restarts.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrQuotaExceeded is returned when any configured quota window is exhausted.
// Callers receive it without waiting and without a network call being made.
var ErrQuotaExceeded = errors.New("ratelimit: quota exceeded")

// Period identifies a quota reset window.
type Period string

const (
	PeriodMinute Period = "minute"
	PeriodDay    Period = "day"
)

// WindowStart computes the wall-clock start of the current window in UTC.
// Day windows reset at UTC midnight, minute windows at the top of the minute.
func WindowStart(p Period, now time.Time) time.Time {
	now = now.UTC()
	switch p {
	case PeriodMinute:
		return now.Truncate(time.Minute)
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return now.Truncate(time.Minute)
	}
}

// Quota caps call volume over one reset period.
type Quota struct {
	Period Period
	Limit  int
}

// QuotaStore persists usage counters keyed by (provider, period, window).
type QuotaStore interface {
	Usage(ctx context.Context, provider string, period Period, windowStart time.Time) (int, error)
	Increment(ctx context.Context, provider string, period Period, windowStart time.Time) error
}

// Limiter gates calls to a single provider.
type Limiter struct {
	name        string
	minInterval time.Duration
	quotas      []Quota
	store       QuotaStore

	mu       sync.Mutex
	lastCall time.Time

	nowFn func() time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock injects a clock, used by tests to pin window boundaries.
func WithClock(nowFn func() time.Time) Option {
	return func(l *Limiter) {
		if nowFn != nil {
			l.nowFn = nowFn
		}
	}
}

// New constructs a limiter for the named provider. Quotas with a zero or
// negative limit are ignored. A nil store disables quota tracking.
func New(name string, minInterval time.Duration, quotas []Quota, store QuotaStore, opts ...Option) *Limiter {
	l := &Limiter{
		name:        name,
		minInterval: minInterval,
		store:       store,
		nowFn:       time.Now,
	}
	for _, q := range quotas {
		if q.Limit > 0 {
			l.quotas = append(l.quotas, q)
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until at least minInterval has elapsed since the previous
// grant, then consumes one unit of every configured quota. When a quota is
// already exhausted it fails fast with ErrQuotaExceeded instead of waiting.
// Only the calling goroutine is suspended while waiting; other providers are
// unaffected.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := l.nowFn()

	if err := l.checkQuotasLocked(ctx, now); err != nil {
		l.mu.Unlock()
		return err
	}

	// Reserve the next slot while holding the lock so concurrent callers
	// space out even though the actual wait happens unlocked.
	var wait time.Duration
	if l.minInterval > 0 {
		next := l.lastCall.Add(l.minInterval)
		if next.After(now) {
			wait = next.Sub(now)
			l.lastCall = next
		} else {
			l.lastCall = now
		}
	}
	l.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			// The reserved slot is lost but no quota unit is burned for a
			// call that never happened.
			return ctx.Err()
		case <-timer.C:
		}
	}

	// Consume quota only after the wait completes, re-checking under the
	// lock so concurrent waiters cannot overshoot the window limit.
	l.mu.Lock()
	defer l.mu.Unlock()
	now = l.nowFn()
	if err := l.checkQuotasLocked(ctx, now); err != nil {
		return err
	}
	if l.store != nil {
		for _, q := range l.quotas {
			if err := l.store.Increment(ctx, l.name, q.Period, WindowStart(q.Period, now)); err != nil {
				return fmt.Errorf("%s: quota increment: %w", l.name, err)
			}
		}
	}
	return nil
}

func (l *Limiter) checkQuotasLocked(ctx context.Context, now time.Time) error {
	if l.store == nil {
		return nil
	}
	for _, q := range l.quotas {
		used, err := l.store.Usage(ctx, l.name, q.Period, WindowStart(q.Period, now))
		if err != nil {
			return fmt.Errorf("%s: quota usage: %w", l.name, err)
		}
		if used >= q.Limit {
			return fmt.Errorf("%s: %s quota of %d: %w", l.name, q.Period, q.Limit, ErrQuotaExceeded)
		}
	}
	return nil
}

// Usage reports current consumption for one quota window, for status surfaces.
func (l *Limiter) Usage(ctx context.Context, period Period) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	return l.store.Usage(ctx, l.name, period, WindowStart(period, l.nowFn()))
}

// Quotas exposes the configured quota set.
func (l *Limiter) Quotas() []Quota { return l.quotas }
