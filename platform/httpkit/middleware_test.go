package httpkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"diagnostico_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type quota struct{ left int }

func (q *quota) Allow(context.Context, string) bool {
	if q.left == 0 {
		return false
	}
	q.left--
	return true
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRateLimitUsesErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reached := 0
	engine.GET("/limited", RateLimit(&quota{left: 1}, logger.Discard(), "slow down"), func(c *gin.Context) {
		reached++
		OK(c, gin.H{"ok": true})
	})

	if rec := serve(engine, http.MethodGet, "/limited"); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec := serve(engine, http.MethodGet, "/limited")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.OK || body.Error != "slow down" {
		t.Fatalf("unexpected body %+v", body)
	}
	if reached != 1 {
		t.Fatalf("handler reached %d times, want 1", reached)
	}
}

func TestRequestLoggerReportsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(logger.NewWithWriter("production", &buf)))
	engine.GET("/boom", func(c *gin.Context) {
		HandleError(c, errors.New("pool exhausted"))
	})
	engine.GET("/fine", func(c *gin.Context) {
		OK(c, gin.H{"ok": true})
	})

	if rec := serve(engine, http.MethodGet, "/fine"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(buf.String(), "http_error") {
		t.Fatalf("successful request logged as error: %s", buf.String())
	}

	rec := serve(engine, http.MethodGet, "/boom")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pool exhausted") {
		t.Fatal("internal cause leaked to the client")
	}
	out := buf.String()
	if !strings.Contains(out, `"msg":"http_error"`) || !strings.Contains(out, "pool exhausted") {
		t.Fatalf("server error not logged with its cause: %s", out)
	}
}
