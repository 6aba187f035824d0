// Package requestid propagates a correlation id through the request context.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"sanctions-gateway/pkg/requestcontext"
)

// Header is the correlation header read from and echoed to callers.
const Header = "X-Request-ID"

const maxLen = 128

// Middleware reuses a caller-supplied X-Request-ID or generates one, stores it
// on the context and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxLen {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}
