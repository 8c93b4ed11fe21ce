package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncAnalysisCountsBySource(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues("basic"))
	IncAnalysis("basic")
	after := testutil.ToFloat64(analysesTotal.WithLabelValues("basic"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestHandlerRendersRegisteredMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncDispatch("draft", "ok")

	r := gin.New()
	r.GET("/metrics", Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "jobapply_dispatch_total") {
		t.Fatalf("expected dispatch counter in output")
	}
}
