package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"stocklens/pkg/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("yahoo", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestFetchStock_quoteSummary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/v10/finance/quoteSummary/GEO" {
			t.Fatalf("path = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"quoteSummary": {
				"result": [{
					"assetProfile": {"sector": "Real Estate", "industry": "REIT - Specialty"},
					"price": {
						"longName": "The GEO Group, Inc.",
						"shortName": "Geo Group Inc (The)",
						"currency": "USD",
						"marketCap": {"raw": 1529000000},
						"regularMarketPrice": {"raw": 12.34},
						"regularMarketVolume": {"raw": 1900000}
					}
				}],
				"error": null
			}
		}`))
	})

	rec, err := c.FetchStock(context.Background(), "GEO")
	if err != nil {
		t.Fatalf("FetchStock: %v", err)
	}
	if rec.CompanyName != "The GEO Group, Inc." {
		t.Fatalf("CompanyName = %q (longName should win)", rec.CompanyName)
	}
	if rec.MarketCap != 1_529_000_000 || rec.Volume != 1_900_000 {
		t.Fatalf("MarketCap = %d, Volume = %d", rec.MarketCap, rec.Volume)
	}
	if rec.Sector != "Real Estate" {
		t.Fatalf("Sector = %q", rec.Sector)
	}
}

func TestFetchStock_shortNameFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"quoteSummary": {
				"result": [{"price": {"shortName": "Acme Corp", "currency": "USD"}}],
				"error": null
			}
		}`))
	})

	rec, err := c.FetchStock(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("FetchStock: %v", err)
	}
	if rec.CompanyName != "Acme Corp" {
		t.Fatalf("CompanyName = %q", rec.CompanyName)
	}
}

func TestFetchStock_apiError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"quoteSummary": {
				"result": null,
				"error": {"code": "Not Found", "description": "Quote not found for ticker symbol: NOPE"}
			}
		}`))
	})

	_, err := c.FetchStock(context.Background(), "NOPE")
	if kind, _ := provider.KindOf(err); kind != provider.KindNotFound {
		t.Fatalf("kind = %s, want not_found; err = %v", kind, err)
	}
}

func TestFetchStock_missingNameIsInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary": {"result": [{"price": {"currency": "USD"}}], "error": null}}`))
	})

	_, err := c.FetchStock(context.Background(), "GEO")
	if kind, _ := provider.KindOf(err); kind != provider.KindInvalidResponse {
		t.Fatalf("kind = %s, want invalid_response; err = %v", kind, err)
	}
}
