package httpserver

import (
	"net/http"
	"time"

	"sanctions-gateway/internal/platform/config"
)

// New builds the HTTP server. WriteTimeout leaves headroom over the screening
// request timeout so slow matcher calls still produce an error body.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.RequestTimeout + cfg.ReadHeaderTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
