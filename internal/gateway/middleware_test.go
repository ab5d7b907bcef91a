package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/metrics"
	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.RequestsPerSecond <= 0 || cfg.Burst <= 0 || cfg.CleanupInterval <= 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestRateLimiterStore_GetLimiter(t *testing.T) {
	store := &rateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		config: RateLimiterConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}

	limiter1 := store.getLimiter("10.0.0.1")
	if limiter1 == nil {
		t.Fatal("expected limiter to be created")
	}
	if limiter2 := store.getLimiter("10.0.0.1"); limiter1 != limiter2 {
		t.Error("expected same limiter to be returned")
	}
	if limiter3 := store.getLimiter("10.0.0.2"); limiter1 == limiter3 {
		t.Error("expected different limiter for different key")
	}
}

func TestRateLimiter_BlocksPerIP(t *testing.T) {
	e := echo.New()
	mw := RateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		Burst:             1,
		CleanupInterval:   time.Hour,
	})
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	call := func(ip string) error {
		req := httptest.NewRequest(http.MethodPost, "/api/transcribe", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		return handler(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := call("10.0.0.1"); err != nil {
		t.Fatalf("first request should succeed: %v", err)
	}

	err := call("10.0.0.1")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if apiErr, ok := he.Message.(*shared.APIError); !ok || apiErr.Code != "rate_limit_exceeded" {
		t.Errorf("unexpected message: %v", he.Message)
	}

	if err := call("10.0.0.2"); err != nil {
		t.Errorf("other client should not be limited: %v", err)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(Metrics(m))
	e.GET("/api/jobs/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return shared.NotFound("job_not_found", "Job not found")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	for _, path := range []string{"/api/jobs/a", "/api/jobs/b", "/api/jobs/missing", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/jobs/:id", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/jobs/:id", "404")); got != 1 {
		t.Errorf("404 count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Errorf("500 count = %v, want 1", got)
	}
}

func TestMetricsMiddleware_NilMetrics(t *testing.T) {
	e := echo.New()
	e.Use(Metrics(nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}
