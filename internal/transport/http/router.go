// Package httptransport assembles the public HTTP surface: middleware, the
// screening endpoints and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sanctions-gateway/internal/platform/metrics"
	platformmw "sanctions-gateway/internal/platform/middleware"
	"sanctions-gateway/internal/screening/handler"
	"sanctions-gateway/pkg/platform/httputil"
	"sanctions-gateway/pkg/platform/middleware/metadata"
	"sanctions-gateway/pkg/platform/middleware/requestid"
	"sanctions-gateway/pkg/platform/middleware/requesttime"
)

// Info describes the running service on the index endpoint.
type Info struct {
	Name    string
	Version string
}

type indexResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// NewRouter wires middleware and every public endpoint.
func NewRouter(info Info, screening *handler.Handler, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(
		chimw.Recoverer,
		requestid.Middleware,
		requesttime.Middleware,
		metadata.ClientMetadata,
		platformmw.AccessLog(logger, m),
	)

	index := indexResponse{
		Name:    info.Name,
		Version: info.Version,
		Status:  "running",
		Endpoints: map[string]string{
			"screen":  "POST /v1/sanctions/screen/person",
			"health":  "GET /health",
			"ready":   "GET /readyz",
			"metrics": "GET /metrics",
		},
	}
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, index)
	})

	screening.Register(r)

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}
