package resolver

import "strings"

// Variations generates common alternate spellings for a broker-specific
// ticker before any external call is made.
// Example: GEO.US -> [GEO.US, GEO, GEO:US, GEO-US, GEO.NYSE, GEO.NASDAQ].
func Variations(ticker string) []string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil
	}

	candidates := []string{ticker}

	if idx := strings.IndexByte(ticker, '.'); idx > 0 {
		base := ticker[:idx]
		candidates = append(candidates,
			base,
			base+":US",
			base+"-US",
			base+".NYSE",
			base+".NASDAQ",
		)
	}

	if strings.ContainsAny(ticker, "-:") {
		clean := strings.NewReplacer("-", "", ":", "").Replace(ticker)
		candidates = append(candidates, clean)
	}

	// Deduplicate preserving order.
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
