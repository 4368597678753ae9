package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stocklens/internal/svc"
)

// ProvidersHandler reports the configured chain with current quota usage.
func ProvidersHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ProviderStatusResp{Providers: make([]ProviderEntryResp, 0, len(serverCtx.Chain))}
		for _, entry := range serverCtx.Chain {
			pe := ProviderEntryResp{
				Name:     entry.Name,
				Priority: entry.Priority,
			}
			if entry.Config.MinInterval > 0 {
				pe.MinInterval = entry.Config.MinInterval.String()
			}
			if limiter := serverCtx.Limiters[entry.Name]; limiter != nil {
				for _, quota := range limiter.Quotas() {
					used, err := limiter.Usage(r.Context(), quota.Period)
					if err != nil {
						httpx.ErrorCtx(r.Context(), w, err)
						return
					}
					pe.Quotas = append(pe.Quotas, QuotaUsageResp{
						Period: string(quota.Period),
						Limit:  quota.Limit,
						Used:   used,
					})
				}
			}
			backoffs, err := serverCtx.Tracker.ActiveFailures(r.Context(), entry.Name)
			if err != nil {
				httpx.ErrorCtx(r.Context(), w, err)
				return
			}
			pe.ActiveBackoffs = backoffs
			resp.Providers = append(resp.Providers, pe)
		}
		httpx.OkJsonCtx(r.Context(), w, &resp)
	}
}
