package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"stocklens/internal/svc"
)

// RegisterHandlers mounts the enrichment API routes.
func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/api/v1/stocks/:ticker/enrich",
				Handler: EnrichHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/api/v1/stocks/:ticker/retry",
				Handler: RetryHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/stocks/:ticker",
				Handler: CachedHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/stocks/:ticker/status",
				Handler: StatusHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/api/v1/stocks/enrich",
				Handler: BulkEnrichHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/providers",
				Handler: ProvidersHandler(serverCtx),
			},
		},
	)
}
