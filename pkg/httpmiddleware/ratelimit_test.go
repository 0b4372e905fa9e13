package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type limitedRequest struct {
	remoteAddr string
	header     map[string]string
	want       int
}

func runLimited(t *testing.T, h http.Handler, reqs []limitedRequest) {
	t.Helper()
	for i, lr := range reqs {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		if lr.remoteAddr != "" {
			req.RemoteAddr = lr.remoteAddr
		}
		for k, v := range lr.header {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, lr.want, w.Code, "request %d", i)
	}
}

func TestRateLimit_Buckets(t *testing.T) {
	const ok, limited = http.StatusOK, http.StatusTooManyRequests

	tests := []struct {
		name    string
		keyFunc func(*http.Request) string
		reqs    []limitedRequest
	}{
		{
			name: "per client ip",
			reqs: []limitedRequest{
				{remoteAddr: "10.0.0.1:1234", want: ok},
				{remoteAddr: "10.0.0.2:1234", want: ok},
				{remoteAddr: "10.0.0.1:5678", want: limited},
			},
		},
		{
			name: "first forwarded address wins over remote addr",
			reqs: []limitedRequest{
				{remoteAddr: "192.168.1.1:4444", header: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, want: ok},
				{remoteAddr: "192.168.1.2:5555", header: map[string]string{"X-Forwarded-For": "203.0.113.50"}, want: limited},
			},
		},
		{
			name:    "api key buckets share an address",
			keyFunc: KeyByHeader("api_key"),
			reqs: []limitedRequest{
				{remoteAddr: "10.0.0.1:1", header: map[string]string{"api_key": "staff-a"}, want: ok},
				{remoteAddr: "10.0.0.1:2", header: map[string]string{"api_key": "staff-b"}, want: ok},
				{remoteAddr: "10.0.0.1:3", header: map[string]string{"api_key": "staff-a"}, want: limited},
				{remoteAddr: "10.0.0.1:4", want: ok},
				{remoteAddr: "10.0.0.1:5", want: limited},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: tt.keyFunc})(okHandler())
			runLimited(t, h, tt.reqs)
		})
	}
}

func TestRateLimit_Headers(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, []string{"4", "3", "2", "1", "0"}[i], w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_RejectionEnvelope(t *testing.T) {
	h := Wrap(okHandler(),
		RequestID(),
		RateLimit(RateLimitConfig{Max: 1, Window: time.Minute}),
	)

	runLimited(t, h, []limitedRequest{{remoteAddr: "10.0.0.9:1", want: http.StatusOK}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:2"
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, map[string]any{
		"code":      float64(429),
		"error":     "rate_limited",
		"message":   "rate limit exceeded",
		"requestId": "req-42",
	}, body)
}

func TestRateLimit_Sweep(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Second})
	now := time.Now()

	require.True(t, l.take("k", now).allowed)
	d := l.take("k", now)
	require.False(t, d.allowed)
	assert.Zero(t, d.remaining)

	l.sweep(now.Add(3 * time.Second))
	assert.Empty(t, l.buckets)

	assert.True(t, l.take("k", now.Add(3*time.Second)).allowed)
}

func TestRateLimit_SlidingEstimate(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Now().Truncate(time.Minute)

	for range 4 {
		require.True(t, l.take("k", start).allowed)
	}
	require.False(t, l.take("k", start.Add(30*time.Second)).allowed)

	// Halfway into the next window the previous four count as two.
	mid := start.Add(90 * time.Second)
	assert.True(t, l.take("k", mid).allowed)
	assert.True(t, l.take("k", mid).allowed)
	assert.False(t, l.take("k", mid).allowed)
}
