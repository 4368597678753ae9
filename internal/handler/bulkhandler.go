package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stocklens/internal/svc"
)

// maxBulkTickers caps a single bulk request.
const maxBulkTickers = 100

// BulkEnrichHandler enriches a batch of tickers concurrently and reports a
// per-ticker outcome map.
func BulkEnrichHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkEnrichReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		if len(req.Tickers) == 0 {
			httpx.ErrorCtx(r.Context(), w, errors.New("tickers cannot be empty"))
			return
		}
		if len(req.Tickers) > maxBulkTickers {
			httpx.ErrorCtx(r.Context(), w, errors.New("too many tickers in one request"))
			return
		}

		results := serverCtx.Orchestrator.BulkEnrich(r.Context(), req.Tickers)
		resp := BulkEnrichResp{Results: make(map[string]BulkEntryResp, len(results))}
		for ticker, res := range results {
			entry := BulkEntryResp{}
			if res.Err != nil {
				entry.Error = res.Err.Error()
			} else {
				entry.Stock = stockResp(res.Record)
			}
			resp.Results[ticker] = entry
		}
		httpx.OkJsonCtx(r.Context(), w, &resp)
	}
}
