package enrich

import (
	"fmt"
	"strings"

	"stocklens/pkg/provider"
)

// Attempt records the outcome of one provider try within an enrichment.
type Attempt struct {
	Provider string
	Ticker   string
	Kind     provider.Kind
	Err      error
}

// AllProvidersFailedError aggregates per-provider failure reasons for one
// enrichment. It is the only error the orchestrator surfaces; individual
// provider failures are absorbed by the fallback loop.
type AllProvidersFailedError struct {
	Ticker         string
	ResolvedTicker string
	Attempts       []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all providers failed for %s", e.Ticker)
	if e.ResolvedTicker != "" {
		fmt.Fprintf(&b, " (retried as %s)", e.ResolvedTicker)
	}
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s=%s", a.Provider, a.Kind)
	}
	return b.String()
}

// Reasons returns the per-provider breakdown keyed by provider name. When a
// provider was attempted for both the original and the resolved ticker, the
// later attempt wins.
func (e *AllProvidersFailedError) Reasons() map[string]provider.Kind {
	out := make(map[string]provider.Kind, len(e.Attempts))
	for _, a := range e.Attempts {
		out[a.Provider] = a.Kind
	}
	return out
}
