// Package health serves the liveness and metrics endpoints of a running board session.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dyluth/tablero/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pingTimeout bounds the store check of a single /healthz request.
const pingTimeout = 2 * time.Second

// Pinger is the connectivity check behind /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides HTTP health check and metrics endpoints.
type Server struct {
	addr      string
	workspace string
	pinger    Pinger
	gatherer  prometheus.Gatherer
	logger    *slog.Logger

	server   *http.Server
	listener net.Listener
}

// NewServer creates a health server for addr. A nil gatherer disables /metrics.
func NewServer(addr, workspace string, pinger Pinger, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		addr:      addr,
		workspace: workspace,
		pinger:    pinger,
		gatherer:  gatherer,
		logger:    logger.With("component", "health"),
	}
}

// Handler returns the mux serving /healthz and, when enabled, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthCheckHandler)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start binds the listener and serves in the background.
// Bind errors are returned synchronously so a taken port fails the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Health server stopped", "error", err)
		}
	}()

	s.logger.Info("Health server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz.
// Returns 200 OK if the shared store answers, 503 Service Unavailable otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	response := Response{
		Status:    "healthy",
		Workspace: s.workspace,
		Redis:     "connected",
	}
	code := http.StatusOK

	if err := s.pinger.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

// Response is the JSON body of /healthz.
type Response struct {
	Status    string `json:"status"`
	Workspace string `json:"workspace,omitempty"`
	Redis     string `json:"redis,omitempty"`
	Error     string `json:"error,omitempty"`
}
