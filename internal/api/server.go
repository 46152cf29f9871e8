// Package api provides the engine's read-only observability surface:
// health, Prometheus metrics, a JSON status snapshot, and a WebSocket
// feed of bus events. It accepts no commands.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/automation"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/risk"
	"github.com/atlas-desktop/pulsecore/internal/service"
)

// Orchestrator is the minimal surface the API needs from
// internal/orchestrator, kept as an interface so this package does not
// import the orchestrator's full wiring.
type Orchestrator interface {
	HealthSnapshot() map[string]map[string]service.Health
	AutomationManager() *automation.Manager
	RiskGuard() *risk.Guard
	Bus() *events.Bus
}

// Config tunes the server's network binding.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig binds to all interfaces on port 8080.
func DefaultConfig() Config {
	return Config{Host: "0.0.0.0", Port: 8080, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second}
}

// Server hosts the read-only HTTP and WebSocket endpoints.
type Server struct {
	logger     *zap.Logger
	cfg        Config
	router     *mux.Router
	httpServer *http.Server
	orch       Orchestrator
	hub        *Hub
	registry   *prometheus.Registry
}

// NewServer builds the router and registers every route.
func NewServer(logger *zap.Logger, cfg Config, orch Orchestrator) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:   logger.Named("api"),
		cfg:      cfg,
		router:   mux.NewRouter(),
		orch:     orch,
		hub:      newHub(logger),
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(newEngineCollector(orch))
	s.setupRoutes()
	go s.hub.run()
	s.hub.subscribeTo(orch.Bus())
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/ws/events", s.hub.handleWebSocket).Methods("GET")
}

// Start blocks serving HTTP until Stop shuts it down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Info("starting observability surface", zap.String("addr", addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server and the websocket hub.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "healthy", "time": time.Now().Unix()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	automationEnabled := false
	if am := s.orch.AutomationManager(); am != nil {
		automationEnabled = am.IsEnabled()
	}
	tradingAllowed := false
	if rg := s.orch.RiskGuard(); rg != nil {
		tradingAllowed = rg.IsTradingAllowed()
	}

	writeJSON(w, map[string]any{
		"services":           s.orch.HealthSnapshot(),
		"automation_enabled": automationEnabled,
		"trading_allowed":    tradingAllowed,
		"time":               time.Now().Unix(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
