package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stocklens/internal/svc"
	"stocklens/pkg/provider"
)

// CachedHandler serves the cached record without touching any provider.
func CachedHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TickerPathReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		rec, ok, err := serverCtx.Orchestrator.GetCached(r.Context(), req.Ticker)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		if !ok {
			httpx.WriteJsonCtx(r.Context(), w, http.StatusNotFound, map[string]string{
				"error": "no cached data for " + req.Ticker,
			})
			return
		}
		httpx.OkJsonCtx(r.Context(), w, stockResp(rec))
	}
}

// StatusHandler reports the enrichment state machine value for one ticker.
func StatusHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TickerPathReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		ticker := provider.NormalizeTicker(req.Ticker)
		status, ok, err := serverCtx.Status.Get(r.Context(), ticker)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		if !ok {
			httpx.WriteJsonCtx(r.Context(), w, http.StatusNotFound, map[string]string{
				"error": "no enrichment recorded for " + ticker,
			})
			return
		}
		httpx.OkJsonCtx(r.Context(), w, &StatusResp{Ticker: ticker, Status: string(status)})
	}
}
