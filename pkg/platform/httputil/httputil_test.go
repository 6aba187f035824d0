package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sanctions-gateway/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "audit sink failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("service unavailable includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeServiceUnavailable, "sanctions screening service unavailable"))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "service_unavailable" {
			t.Fatalf("expected error code service_unavailable, got %q", body["error"])
		}
		if body["error_description"] != "sanctions screening service unavailable" {
			t.Fatalf("expected error_description to be returned")
		}
	})
}

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[sampleRequest](w, r, nil, context.Background(), "req-1")
		return req, w, ok
	}

	t.Run("valid body is normalized", func(t *testing.T) {
		req, _, ok := decode(`{"name":"  Jane  "}`)
		require.True(t, ok)
		assert.Equal(t, "Jane", req.Name)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		_, w, ok := decode(`{"name":`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		req, _, ok := decode(`{"name":"Jane","extra":1}`)
		require.True(t, ok)
		assert.Equal(t, "Jane", req.Name)
	})

	t.Run("validation failure uses the validation status", func(t *testing.T) {
		_, w, ok := decode(`{"name":"   "}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestDecodeReturnsCodedErrors(t *testing.T) {
	decode := func(body string) (*sampleRequest, error) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return Decode[sampleRequest](r, nil, context.Background(), "req-1")
	}

	req, err := decode(`{"name":" Jane "}`)
	require.NoError(t, err)
	assert.Equal(t, "Jane", req.Name)

	_, err = decode("")
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "request body is required")

	_, err = decode(`{"name":""}`)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}
