package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"jobapply-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	prev := telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(prev) })

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.POST("/api/v1/sessions/:id/draft", Session(), func(c *gin.Context) {
		c.Set("action", "draft")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s-1/draft", nil)
	req.Header.Set("X-Request-Id", "req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	for _, key := range []string{"request_id", "session_id", "action", "duration_ms", "status", "route"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if fields["request_id"] != "req-1" {
		t.Fatalf("unexpected request_id: %v", fields["request_id"])
	}
	if fields["session_id"] != "s-1" {
		t.Fatalf("unexpected session_id: %v", fields["session_id"])
	}
	if fields["route"] != "/api/v1/sessions/:id/draft" {
		t.Fatalf("unexpected route: %v", fields["route"])
	}
}

func TestLoggingSkipsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	prev := telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(prev) })

	router := gin.New()
	router.Use(Logging(), CORS([]string{"http://localhost:5173"}))
	router.OPTIONS("/api/v1/sessions", func(c *gin.Context) {})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if n := logs.Len(); n != 0 {
		t.Fatalf("expected no logs for preflight, got %d", n)
	}
}
