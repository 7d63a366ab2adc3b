package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMemoryRateLimiter_Allow(t *testing.T) {
	l := NewMemoryRateLimiter(3, time.Minute)
	defer l.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, allowed)

	// 不同 key 互不影响
	allowed, err = l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryRateLimiter_WindowExpiry(t *testing.T) {
	l := NewMemoryRateLimiter(1, 50*time.Millisecond)
	defer l.Stop()
	ctx := context.Background()

	allowed, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(60 * time.Millisecond)
	allowed, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryRateLimiter_Reset(t *testing.T) {
	l := NewMemoryRateLimiter(1, time.Minute)
	defer l.Stop()
	ctx := context.Background()

	_, err := l.Allow(ctx, "k")
	require.NoError(t, err)

	allowed, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, l.Reset(ctx, "k"))
	allowed, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestExtractClientIP(t *testing.T) {
	trusted := parseTrustedProxies([]string{"10.0.0.0/8"})

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xrip       string
		want       string
	}{
		{"直连对端", "203.0.113.5:1234", "", "", "203.0.113.5"},
		{"不可信代理忽略转发头", "203.0.113.5:1234", "198.51.100.9", "", "203.0.113.5"},
		{"可信代理取 XFF 首跳", "10.1.2.3:1234", "198.51.100.9, 10.1.2.3", "", "198.51.100.9"},
		{"可信代理回退 X-Real-IP", "10.1.2.3:1234", "", "198.51.100.7", "198.51.100.7"},
		{"转发头非法时回退对端", "10.1.2.3:1234", "not-an-ip", "", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xrip != "" {
				r.Header.Set("X-Real-IP", tt.xrip)
			}
			assert.Equal(t, tt.want, extractClientIP(r, trusted))
		})
	}
}

func newRateLimitedRouter(cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doRequest(r *gin.Engine, companyID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if companyID != "" {
		req.Header.Set("X-Company-ID", companyID)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_超限返回429(t *testing.T) {
	limiter := NewMemoryRateLimiter(2, time.Minute)
	defer limiter.Stop()
	r := newRateLimitedRouter(RateLimitConfig{Limit: 2, Window: time.Minute, Limiter: limiter})

	assert.Equal(t, http.StatusOK, doRequest(r, "1").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, "1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "1").Code)
}

func TestRateLimit_按租户隔离(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Minute)
	defer limiter.Stop()
	r := newRateLimitedRouter(RateLimitConfig{Limit: 1, Window: time.Minute, Limiter: limiter})

	assert.Equal(t, http.StatusOK, doRequest(r, "1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "1").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, "2").Code)
}

func TestRateLimit_跳过路径(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Minute)
	defer limiter.Stop()
	r := newRateLimitedRouter(RateLimitConfig{
		Limit: 1, Window: time.Minute, Limiter: limiter,
		SkipPaths: []string{"/healthz"},
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Company-ID", "1")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
