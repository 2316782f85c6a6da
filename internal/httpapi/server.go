// Package httpapi serves the daemon's HTTP surface: health and readiness
// endpoints, Prometheus metrics, and the per-tool POST adapter that shares
// the core executor with the stdio transport.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/executor"
	"github.com/haasonsaas/aidis/internal/observability"
)

// Snapshot is the single health view all endpoints read from.
type Snapshot struct {
	Status        string  `json:"status"`
	UptimeSeconds int     `json:"uptime_seconds"`
	DBHealthy     bool    `json:"db_healthy"`
	BreakerState  string  `json:"breaker_state"`
	PoolHealthy   bool    `json:"pool_healthy"`
	PoolActive    int     `json:"pool_active"`
	PoolIdle      int     `json:"pool_idle"`
	PoolUtilized  float64 `json:"pool_utilization"`
	Embedder      string  `json:"embedder"`
	EmbeddingDims int     `json:"embedding_dimension"`
	MCPAttached   bool    `json:"mcp_attached"`
}

// Ready reports whether the daemon should pass readiness: database healthy,
// breaker not open, pool healthy.
func (s Snapshot) Ready() bool {
	return s.DBHealthy && s.BreakerState != "open" && s.PoolHealthy
}

// SnapshotFunc produces the current health snapshot.
type SnapshotFunc func(ctx context.Context) Snapshot

// Server is the HTTP transport.
type Server struct {
	exec     *executor.Executor
	logger   *observability.Logger
	metrics  *observability.Metrics
	snapshot SnapshotFunc

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates the HTTP transport over the executor.
func NewServer(exec *executor.Executor, logger *observability.Logger, metrics *observability.Metrics, snapshot SnapshotFunc) *Server {
	return &Server{
		exec:     exec,
		logger:   logger,
		metrics:  metrics,
		snapshot: snapshot,
	}
}

// Start listens on addr and serves in the background. It returns the bound
// port, which matters when addr asks for port 0.
func (s *Server) Start(ctx context.Context, addr string) (int, error) {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /health", s.handleLiveness)
	mux.HandleFunc("GET /livez", s.handleLivez)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /health/mcp", s.handleMCPHealth)
	mux.HandleFunc("GET /health/database", s.handleDatabaseHealth)
	mux.HandleFunc("GET /health/embeddings", s.handleEmbeddingsHealth)
	mux.HandleFunc("POST /mcp/tools/{name}", s.handleToolCall)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "http server error", "error", err)
		}
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	s.logger.Info(ctx, "http server listening", "addr", listener.Addr().String())
	return port, nil
}

// Stop shuts the server down within the context deadline.
func (s *Server) Stop(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "http server shutdown error", "error", err)
	}
	s.httpServer = nil
	s.listener = nil
}

func (s *Server) writeJSON(w http.ResponseWriter, path string, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug(context.Background(), "response write failed", "error", err)
	}
	s.metrics.ObserveHTTPRequest(path, strconv.Itoa(status))
}

// healthCtx bounds health probes so they never block on the pool.
func healthCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 2*time.Second)
}

// handleLiveness answers /healthz and /health: 200 whenever the process is
// up, regardless of database state.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "/healthz", http.StatusOK, map[string]any{"status": "healthy"})
}

func (s *Server) handleLivez(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := healthCtx(r)
	defer cancel()
	snap := s.snapshot(ctx)
	s.writeJSON(w, "/livez", http.StatusOK, map[string]any{
		"status":         "alive",
		"uptime_seconds": snap.UptimeSeconds,
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := healthCtx(r)
	defer cancel()
	snap := s.snapshot(ctx)

	if !snap.Ready() {
		s.writeJSON(w, "/readyz", http.StatusServiceUnavailable, map[string]any{
			"status":        "not ready",
			"database":      dbStatus(snap.DBHealthy),
			"breaker_state": snap.BreakerState,
		})
		return
	}
	s.writeJSON(w, "/readyz", http.StatusOK, map[string]any{
		"status":   "ready",
		"database": "connected",
	})
}

func (s *Server) handleMCPHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := healthCtx(r)
	defer cancel()
	snap := s.snapshot(ctx)
	s.writeJSON(w, "/health/mcp", http.StatusOK, map[string]any{
		"attached": snap.MCPAttached,
		"tools":    s.exec.Registry().Len(),
	})
}

func (s *Server) handleDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := healthCtx(r)
	defer cancel()
	snap := s.snapshot(ctx)

	status := http.StatusOK
	if !snap.DBHealthy || !snap.PoolHealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, "/health/database", status, map[string]any{
		"healthy":       snap.DBHealthy && snap.PoolHealthy,
		"breaker_state": snap.BreakerState,
		"active":        snap.PoolActive,
		"idle":          snap.PoolIdle,
		"utilization":   snap.PoolUtilized,
	})
}

func (s *Server) handleEmbeddingsHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := healthCtx(r)
	defer cancel()
	snap := s.snapshot(ctx)
	s.writeJSON(w, "/health/embeddings", http.StatusOK, map[string]any{
		"provider":  snap.Embedder,
		"dimension": snap.EmbeddingDims,
	})
}

// toolRequest is the POST body of /mcp/tools/{name}. Both "arguments" and
// the shorter "args" spelling are accepted.
type toolRequest struct {
	Arguments map[string]any `json:"arguments"`
	Args      map[string]any `json:"args"`
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	toolName := r.PathValue("name")
	correlationID := uuid.NewString()
	ctx := observability.WithCorrelationID(r.Context(), correlationID)

	// An empty body means no arguments; anything else must parse.
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, "/mcp/tools", http.StatusBadRequest, map[string]any{
			"success":       false,
			"error":         "invalid JSON body: " + err.Error(),
			"type":          string(errs.KindInvalidParams),
			"correlationId": correlationID,
		})
		return
	}
	args := req.Arguments
	if args == nil {
		args = req.Args
	}

	result, err := s.exec.Execute(ctx, toolName, args, correlationID, "http")
	if err != nil {
		kind := errs.KindOf(err)
		s.writeJSON(w, "/mcp/tools", httpStatus(kind), map[string]any{
			"success":       false,
			"error":         err.Error(),
			"type":          string(kind),
			"correlationId": correlationID,
		})
		return
	}

	s.writeJSON(w, "/mcp/tools", http.StatusOK, map[string]any{
		"success":       true,
		"result":        result,
		"correlationId": correlationID,
	})
}

// httpStatus maps error kinds to HTTP statuses: caller faults get 4xx,
// infrastructure faults 5xx.
func httpStatus(kind errs.Kind) int {
	switch kind {
	case errs.KindInvalidParams, errs.KindPreSwitchValidationFailed:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindResourceExhausted, errs.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func dbStatus(healthy bool) string {
	if healthy {
		return "connected"
	}
	return "disconnected"
}
