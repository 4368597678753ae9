package provider

import (
	"context"
	"errors"

	"stocklens/pkg/ratelimit"
)

// Gated wraps a Provider and consults its rate limiter before any network
// call. A quota refusal from the limiter surfaces as KindQuotaExceeded and the
// underlying source is never contacted.
type Gated struct {
	inner   Provider
	limiter *ratelimit.Limiter
}

// WithLimiter attaches a limiter to a provider. A nil limiter returns the
// provider unchanged.
func WithLimiter(p Provider, l *ratelimit.Limiter) Provider {
	if l == nil {
		return p
	}
	return &Gated{inner: p, limiter: l}
}

func (g *Gated) Name() string { return g.inner.Name() }

// FetchStock acquires a rate-limit permit and delegates to the wrapped source.
func (g *Gated) FetchStock(ctx context.Context, ticker string) (*StockRecord, error) {
	if err := g.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ratelimit.ErrQuotaExceeded) {
			return nil, NewError(g.inner.Name(), KindQuotaExceeded, err)
		}
		return nil, Classify(g.inner.Name(), err)
	}
	return g.inner.FetchStock(ctx, ticker)
}
