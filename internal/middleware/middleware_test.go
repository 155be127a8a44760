package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/seo-pipeline-go/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/api/v1/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestRequestIDGenerated(t *testing.T) {
	router := newTestRouter(RequestID())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("response missing generated request ID")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	router := newTestRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(RequestIDHeader, "client-chosen")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "client-chosen" {
		t.Fatalf("request ID = %q, want client-chosen", got)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.Config{HTTPAuth: config.HTTPAuthConfig{APIKeys: []string{"secret-one", "secret-two"}}}
	router := newTestRouter(RequestID(), APIKeyAuth(cfg))

	// Missing key on protected path.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d", rec.Code)
	}

	// X-API-Key header.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-API-Key", "secret-two")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid key: status = %d", rec.Code)
	}

	// Bearer token.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer secret-one")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer key: status = %d", rec.Code)
	}

	// Wrong key.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d", rec.Code)
	}

	// Unprotected path passes without a key.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	router := newTestRouter(APIKeyAuth(&config.Config{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want pass-through", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{
		RequestsPerMinute: 3,
		CacheSize:         16,
		CacheTTL:          time.Minute,
	}}
	router := newTestRouter(RequestID(), RateLimit(cfg))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: status = %d", rec.Code)
	}

	// Health stays unthrottled.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	router := newTestRouter(RateLimit(&config.Config{}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
}

func TestRequestLoggerPasses(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := newTestRouter(RequestID(), RequestLogger(logger))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
