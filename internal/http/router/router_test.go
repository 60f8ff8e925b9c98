package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "diagnostico_backend/internal/http"
	"diagnostico_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type testConfig struct {
	origins []string
}

func (testConfig) GetHTTPAddr() string         { return ":0" }
func (c testConfig) GetCORSAllowAll() bool     { return len(c.origins) == 0 }
func (c testConfig) GetCORSOrigins() []string  { return c.origins }
func (testConfig) GetCORSAllowCreds() bool     { return false }
func (testConfig) GetTrustedProxies() []string { return nil }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }
func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "echo") })
}

func newEngine(health map[string]apphttp.HealthChecker, cfg testConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"}))

	return New(&apphttp.App{
		Config:  cfg,
		Logger:  logger.Discard(),
		Health:  health,
		Metrics: reg,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func get(engine *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(newEngine(nil, testConfig{}), "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
}

func TestReady(t *testing.T) {
	ok := newEngine(map[string]apphttp.HealthChecker{"database": pinger{}, "redis": nil}, testConfig{})
	if rec := get(ok, "/api/ready", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	failing := newEngine(map[string]apphttp.HealthChecker{"database": pinger{err: errors.New("down")}}, testConfig{})
	rec := get(failing, "/api/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" || body.Checks["database"] != "unavailable" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestModulesAndMetricsMounted(t *testing.T) {
	engine := newEngine(nil, testConfig{})

	if rec := get(engine, "/api/v1/echo", nil); rec.Code != http.StatusOK || rec.Body.String() != "echo" {
		t.Fatalf("module route: %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(engine, "/metrics", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if rec := get(engine, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", rec.Code)
	}
}

func TestCORSAllowList(t *testing.T) {
	engine := newEngine(nil, testConfig{origins: []string{"https://forms.example.com"}})

	rec := get(engine, "/api/health", map[string]string{"Origin": "https://forms.example.com"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://forms.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	rec = get(engine, "/api/health", map[string]string{"Origin": "https://evil.example.com"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disallowed origin status = %d, want 403", rec.Code)
	}
}
