package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/monitoring"
)

func TestSetupServiceRouter(t *testing.T) {
	logger := logging.NewNopLogger()
	hc := monitoring.NewHealthChecker("svc_test", "test")
	mc := monitoring.NewMetricsCollector("svc_test_router", "test", "none")

	r := SetupServiceRouter(logger, "svc_test", hc, mc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
}
