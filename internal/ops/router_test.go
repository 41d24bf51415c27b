package ops

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouterRateLimitsAPIRoutes(t *testing.T) {
	h := NewRouter(nil, nil, nil, nil, nil).Routes()

	// Malformed bodies stop at the decoder, so no service is touched and
	// the limiter in front of the route group eventually answers.
	limited := false
	for i := 0; i < 2*apiRateLimit+5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	require.True(t, limited, "expected the rate limiter to engage")
}

func TestRouterLeavesHealthProbesUnlimited(t *testing.T) {
	h := NewRouter(nil, nil, nil, nil, nil).Routes()

	for i := 0; i < 2*apiRateLimit+5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz/live", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
