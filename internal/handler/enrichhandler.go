package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stocklens/internal/enrich"
	"stocklens/internal/svc"
	"stocklens/pkg/provider"
)

// EnrichHandler runs the full enrichment workflow for one ticker.
func EnrichHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TickerPathReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		rec, err := serverCtx.Orchestrator.Enrich(r.Context(), req.Ticker)
		writeEnrichResult(w, r, rec, err)
	}
}

// RetryHandler re-runs enrichment for one ticker, bypassing backoff windows
// for this single pass.
func RetryHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TickerPathReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		rec, err := serverCtx.Orchestrator.TriggerRetry(r.Context(), req.Ticker)
		writeEnrichResult(w, r, rec, err)
	}
}

func writeEnrichResult(w http.ResponseWriter, r *http.Request, rec *provider.StockRecord, err error) {
	if err == nil {
		httpx.OkJsonCtx(r.Context(), w, stockResp(rec))
		return
	}
	var failure *enrich.AllProvidersFailedError
	if errors.As(err, &failure) {
		reasons := make(map[string]string, len(failure.Attempts))
		for name, kind := range failure.Reasons() {
			reasons[name] = string(kind)
		}
		httpx.WriteJsonCtx(r.Context(), w, http.StatusBadGateway, &EnrichFailureResp{
			Ticker:         failure.Ticker,
			ResolvedTicker: failure.ResolvedTicker,
			Reasons:        reasons,
			Message:        failure.Error(),
		})
		return
	}
	httpx.ErrorCtx(r.Context(), w, err)
}
