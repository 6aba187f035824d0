// Package requesttime pins a single "now" per HTTP request so the screening
// response timestamp and the screening_request audit event agree.
package requesttime

import (
	"net/http"
	"time"

	"sanctions-gateway/pkg/requestcontext"
)

// Middleware captures the current UTC time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
