package alphavantage

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
	return New("alphavantage", "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestFetchStock_overview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "OVERVIEW" {
			t.Fatalf("function = %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Fatalf("apikey = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Symbol": "GEO",
			"Name": "The GEO Group Inc",
			"Sector": "Real Estate",
			"Industry": "REIT - Specialty",
			"Currency": "USD",
			"MarketCapitalization": "1530000000"
		}`))
	})

	rec, err := c.FetchStock(context.Background(), "geo")
	if err != nil {
		t.Fatalf("FetchStock: %v", err)
	}
	if rec.Ticker != "GEO" || rec.CompanyName != "The GEO Group Inc" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.MarketCap != 1_530_000_000 {
		t.Fatalf("MarketCap = %d", rec.MarketCap)
	}
	if rec.SourceProvider != "alphavantage" {
		t.Fatalf("SourceProvider = %q", rec.SourceProvider)
	}
}

func TestFetchStock_throttleNoteIn200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	})

	_, err := c.FetchStock(context.Background(), "GEO")
	if kind, _ := provider.KindOf(err); kind != provider.KindRateLimited {
		t.Fatalf("kind = %s, want rate_limited; err = %v", kind, err)
	}
}

func TestFetchStock_unknownSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.FetchStock(context.Background(), "NOPE")
	if kind, _ := provider.KindOf(err); kind != provider.KindNotFound {
		t.Fatalf("kind = %s, want not_found; err = %v", kind, err)
	}
}

func TestFetchStock_httpErrors(t *testing.T) {
	tests := []struct {
		status int
		want   provider.Kind
	}{
		{http.StatusTooManyRequests, provider.KindRateLimited},
		{http.StatusInternalServerError, provider.KindNetworkError},
	}
	for _, tc := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.FetchStock(context.Background(), "GEO")
		if kind, _ := provider.KindOf(err); kind != tc.want {
			t.Fatalf("status %d: kind = %s, want %s", tc.status, kind, tc.want)
		}
	}
}
