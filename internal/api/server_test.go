package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atlas-desktop/pulsecore/internal/automation"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/risk"
	"github.com/atlas-desktop/pulsecore/internal/service"
)

type fakeOrchestrator struct {
	bus     *events.Bus
	health  map[string]map[string]service.Health
	autoMgr *automation.Manager
	guard   *risk.Guard
}

func (f *fakeOrchestrator) HealthSnapshot() map[string]map[string]service.Health { return f.health }
func (f *fakeOrchestrator) AutomationManager() *automation.Manager               { return f.autoMgr }
func (f *fakeOrchestrator) RiskGuard() *risk.Guard                               { return f.guard }
func (f *fakeOrchestrator) Bus() *events.Bus                                     { return f.bus }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	orch := &fakeOrchestrator{
		bus: events.New(nil, events.DefaultConfig()),
		health: map[string]map[string]service.Health{
			"EURUSD": {"data_fetcher": {ServiceName: "data_fetcher", Status: service.StatusRunning, Healthy: true}},
		},
	}
	s := NewServer(nil, DefaultConfig(), orch)
	t.Cleanup(func() { s.hub.close() })
	return s
}

func TestHealthEndpointReportsHealthy(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("expected status=healthy, got %v", body["status"])
	}
}

func TestStatusEndpointReflectsHealthSnapshotAndDefaultsWhenNoGuard(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)

	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["trading_allowed"] != false {
		t.Fatalf("expected trading_allowed=false with a nil risk guard, got %v", body["trading_allowed"])
	}
	if body["automation_enabled"] != false {
		t.Fatalf("expected automation_enabled=false with a nil automation manager, got %v", body["automation_enabled"])
	}
	services, ok := body["services"].(map[string]any)
	if !ok {
		t.Fatalf("expected a services map in the status body, got %T", body["services"])
	}
	if _, ok := services["EURUSD"]; !ok {
		t.Fatal("expected the EURUSD health snapshot to be reflected in /status")
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if ct == "" {
		t.Fatal("expected a Content-Type header from promhttp.Handler")
	}
}
