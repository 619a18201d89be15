package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/insights/logging"
	"github.com/seo-optimizer/insights/requestid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(slog.Default()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"An unexpected error occurred"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/api/analyze", okHandler)

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/analyze", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Empty(t, rec.Body.String())
	})

	t.Run("simple request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "bucket exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled")
	assert.False(t, rl.Allow("10.0.0.1"))

	now = now.Add(time.Hour)
	assert.Equal(t, 0, rl.Prune(2*time.Hour))
	assert.Equal(t, 2, rl.Prune(time.Minute))
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/api/health", okHandler)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "Rate limit exceeded")
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = requestid.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestid.Header, "abc-123")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(requestid.Header))
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestID(), Logging(logger))
	r.GET("/api/health", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestid.Header, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "/api/health", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestStats(t *testing.T) {
	stats, err := logging.NewStatistics(t.TempDir(), true)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Stats(stats, slog.Default()))
	r.POST("/api/analyze", func(c *gin.Context) {
		c.Set(WebsiteKey, "https://example.com")
		c.JSON(http.StatusBadRequest, gin.H{"error": "x"})
	})
	r.GET("/api/health", okHandler)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, 0, stats.TotalRequests())
	assert.Equal(t, 1, stats.GetUniqueVisitorsCount())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, 1, stats.TotalRequests())
	assert.InDelta(t, 100, stats.GetErrorRate(), 0.001)
	assert.Equal(t, 1, stats.GetPopularURLs(5)["https://example.com"])
}
