package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctions-gateway/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("caller id is reused", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(Header, "withdrawal-991")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, "withdrawal-991", seen)
		assert.Equal(t, "withdrawal-991", w.Header().Get(Header))
	})

	t.Run("missing or oversized id is generated", func(t *testing.T) {
		for _, in := range []string{"", strings.Repeat("x", maxLen+1)} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(Header, in)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			_, err := uuid.Parse(seen)
			require.NoError(t, err)
			assert.Equal(t, seen, w.Header().Get(Header))
		}
	})
}
