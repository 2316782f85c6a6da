package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/haasonsaas/aidis/internal/backoff"
	"github.com/haasonsaas/aidis/internal/breaker"
	"github.com/haasonsaas/aidis/internal/config"
	"github.com/haasonsaas/aidis/internal/embeddings"
	"github.com/haasonsaas/aidis/internal/executor"
	"github.com/haasonsaas/aidis/internal/httpapi"
	"github.com/haasonsaas/aidis/internal/mcp"
	"github.com/haasonsaas/aidis/internal/observability"
	"github.com/haasonsaas/aidis/internal/portman"
	"github.com/haasonsaas/aidis/internal/registry"
	"github.com/haasonsaas/aidis/internal/state"
	"github.com/haasonsaas/aidis/internal/storage"
	"github.com/haasonsaas/aidis/internal/tools"
	"github.com/haasonsaas/aidis/pkg/models"
)

// Worker is a background collaborator (queue manager, git tracker, ...)
// the lifecycle starts after the core and stops before it. The core is
// resilient to workers being absent or failing.
type Worker interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager owns the daemon's lifecycle: singleton lock, startup sequencing,
// health reporting and ordered shutdown.
type Manager struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics
	version string

	gateway  *storage.Gateway
	brk      *breaker.Breaker
	embedder embeddings.Provider
	sessions *storage.SessionStore
	stateMgr *state.Manager
	exec     *executor.Executor

	httpServer *httpapi.Server
	stdio      *mcp.Server
	ports      *portman.Manager
	lock       *LockHandle
	workers    []Worker

	startTime     time.Time
	dbHealthy     atomic.Bool
	stdioAttached atomic.Bool

	// shutdownCh receives the reason that ends Run.
	shutdownCh chan string
}

// NewManager creates the lifecycle manager.
func NewManager(cfg *config.Config, logger *observability.Logger, version string, workers []Worker) *Manager {
	return &Manager{
		cfg:        cfg,
		logger:     logger,
		metrics:    observability.NewMetrics(),
		version:    version,
		workers:    workers,
		startTime:  time.Now(),
		shutdownCh: make(chan string, 1),
	}
}

// Run executes the full lifecycle and blocks until shutdown completes.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.preflight(ctx); err != nil {
		return err
	}

	pidPath := filepath.Join(m.cfg.Server.RunDir, "aidis.pid")
	lock, err := AcquireLock(pidPath)
	if err != nil {
		return err
	}
	m.lock = lock
	defer func() {
		if err := m.lock.Release(); err != nil {
			m.logger.Warn(ctx, "release singleton lock failed", "error", err)
		}
	}()
	m.logger.Info(ctx, "singleton lock acquired", "pid", lock.PID, "path", pidPath)

	if err := m.startup(ctx); err != nil {
		m.logger.Error(ctx, "startup failed", "error", err)
		m.shutdown("STARTUP_FAILURE")
		return fmt.Errorf("startup: %w", err)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case sig := <-signalCh:
		m.logger.Info(ctx, "signal received", "signal", sig.String())
		m.shutdown(sig.String())
	case reason := <-m.shutdownCh:
		m.shutdown(reason)
	case <-ctx.Done():
		m.shutdown("context cancelled")
	}
	return nil
}

// preflight probes the port registry for an already-running instance
// before touching any state.
func (m *Manager) preflight(ctx context.Context) error {
	m.ports = portman.NewManager(m.cfg.Server.RunDir)
	port, err := m.ports.DiscoverServicePort(m.cfg.Server.ServiceName)
	if err != nil || port == 0 {
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/healthz", port))
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return fmt.Errorf("an instance of %s is already serving on port %d", m.cfg.Server.ServiceName, port)
	}
	return nil
}

// startup runs the ordered startup sequence. Every step honors its
// documented opt-out flag.
func (m *Manager) startup(ctx context.Context) error {
	// Step 1: storage, behind retry and the circuit breaker.
	if !m.cfg.SkipDatabase {
		if err := m.initDatabase(ctx); err != nil {
			return err
		}
	} else {
		m.logger.Warn(ctx, "database skipped by configuration")
	}

	m.embedder = embeddings.NewCached(embeddings.NewLocal(models.EmbeddingDimension), 2048)

	deps := m.buildDeps()
	catalog := tools.Catalog(deps)
	reg, err := registry.New(catalog)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	deps.Registry = reg
	m.exec = executor.New(reg, m.logger, m.metrics, m.cfg.Server.ToolTimeout)

	// Step 2: make sure an active session exists for this process.
	if m.stateMgr != nil {
		if _, err := m.stateMgr.EnsureSession(ctx, "daemon"); err != nil {
			m.logger.Warn(ctx, "session bootstrap failed", "error", err)
		}
	}

	// Step 3: background workers, each best-effort.
	if !m.cfg.SkipBackground {
		for _, worker := range m.workers {
			if err := worker.Start(ctx); err != nil {
				m.logger.Warn(ctx, "worker start failed", "worker", worker.Name(), "error", err)
			} else {
				m.logger.Info(ctx, "worker started", "worker", worker.Name())
			}
		}
	}

	// Step 4: HTTP transport on a managed port.
	port := m.cfg.Server.Port
	if port == 0 {
		assigned, err := m.ports.AssignPort(m.cfg.Server.ServiceName)
		if err != nil {
			return fmt.Errorf("assign port: %w", err)
		}
		port = assigned
	}
	m.httpServer = httpapi.NewServer(m.exec, m.logger, m.metrics, m.Snapshot)
	boundPort, err := m.httpServer.Start(ctx, fmt.Sprintf("%s:%d", m.cfg.Server.Host, port))
	if err != nil {
		return err
	}
	if err := m.ports.RegisterService(m.cfg.Server.ServiceName, boundPort, "/healthz"); err != nil {
		m.logger.Warn(ctx, "port registration failed", "error", err)
	}

	// Step 5: stdio transport.
	if !m.cfg.SkipStdio {
		m.stdio = mcp.NewServer(m.exec, m.logger, os.Stdin, os.Stdout)
		m.stdio.Debug = m.cfg.Debug
		m.stdio.Status = func(ctx context.Context) any { return m.statusPayload(ctx) }
		m.stdioAttached.Store(true)
		go func() {
			if err := m.stdio.Serve(ctx); err != nil {
				m.logger.Warn(ctx, "stdio transport ended", "error", err)
			}
			m.stdioAttached.Store(false)
		}()
	}

	m.logger.Info(ctx, "startup complete",
		"version", m.version, "http_port", boundPort, "tools", m.exec.Registry().Len())
	return nil
}

// initDatabase opens the pool with up to 3 attempts at 1s/2s/4s backoff,
// each attempt gated by the circuit breaker.
func (m *Manager) initDatabase(ctx context.Context) error {
	m.brk = breaker.New(breaker.Options{
		Name:             "database",
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		OnStateChange: func(name, from, to string) {
			m.logger.Warn(ctx, "circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})

	policy := backoff.Policy{Initial: time.Second, Max: 8 * time.Second, Factor: 2}
	err := backoff.Retry(ctx, policy, 3, func(attempt int) error {
		m.logger.Info(ctx, "connecting to database", "attempt", attempt)
		return m.brk.Do(ctx, func(ctx context.Context) error {
			gw, err := storage.NewGateway(m.cfg.Database.DSN(), storage.Config{
				MaxOpenConns:    m.cfg.Database.MaxOpenConns,
				MaxIdleConns:    m.cfg.Database.MaxIdleConns,
				ConnMaxLifetime: m.cfg.Database.ConnMaxLifetime,
				ConnMaxIdleTime: m.cfg.Database.ConnMaxIdleTime,
				ConnectTimeout:  m.cfg.Database.ConnectTimeout,
			})
			if err != nil {
				return err
			}
			applied, err := gw.Migrate(ctx)
			if err != nil {
				_ = gw.Close()
				return err
			}
			if len(applied) > 0 {
				m.logger.Info(ctx, "migrations applied", "count", len(applied))
			}
			m.gateway = gw
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}

	m.dbHealthy.Store(true)
	m.logger.Info(ctx, "database connected")
	return nil
}

func (m *Manager) buildDeps() *tools.Deps {
	deps := &tools.Deps{
		Logger:    m.logger,
		Embedder:  m.embedder,
		Prefix:    m.cfg.Tools.Prefix,
		Version:   m.version,
		StartTime: m.startTime,
		Health: func(ctx context.Context) map[string]any {
			snap := m.Snapshot(ctx)
			return map[string]any{
				"database": snap.DBHealthy,
				"breaker":  snap.BreakerState,
				"ready":    snap.Ready(),
			}
		},
	}
	if m.gateway != nil {
		projects := storage.NewProjectStore(m.gateway)
		m.sessions = storage.NewSessionStore(m.gateway)
		m.stateMgr = state.NewManager(m.gateway, projects, m.sessions, m.logger)

		deps.Projects = projects
		deps.Sessions = m.sessions
		deps.Contexts = storage.NewContextStore(m.gateway)
		deps.Decisions = storage.NewDecisionStore(m.gateway)
		deps.Tasks = storage.NewTaskStore(m.gateway)
		deps.State = m.stateMgr
	}
	return deps
}

// Snapshot is the single health view behind every health endpoint.
func (m *Manager) Snapshot(ctx context.Context) httpapi.Snapshot {
	snap := httpapi.Snapshot{
		Status:        "healthy",
		UptimeSeconds: int(time.Since(m.startTime).Seconds()),
		DBHealthy:     m.dbHealthy.Load(),
		BreakerState:  "closed",
		Embedder:      m.embedder.Name(),
		EmbeddingDims: m.embedder.Dimension(),
		MCPAttached:   m.stdioAttached.Load(),
	}
	if m.brk != nil {
		snap.BreakerState = m.brk.State()
	}
	if m.gateway != nil {
		health := m.gateway.Healthz(ctx)
		snap.PoolHealthy = health.Healthy
		snap.PoolActive = health.InUse
		snap.PoolIdle = health.Idle
		snap.PoolUtilized = health.Utilization
	}
	return snap
}

func (m *Manager) statusPayload(ctx context.Context) map[string]any {
	snap := m.Snapshot(ctx)
	return map[string]any{
		"status":         snap.Status,
		"version":        m.version,
		"uptime_seconds": snap.UptimeSeconds,
		"database":       snap.DBHealthy,
		"breaker_state":  snap.BreakerState,
		"tools":          m.exec.Registry().Len(),
	}
}

// RequestShutdown asks the running lifecycle to stop.
func (m *Manager) RequestShutdown(reason string) {
	select {
	case m.shutdownCh <- reason:
	default:
	}
}

// shutdown runs the ordered shutdown sequence, bounded by the configured
// timeout. A hung step is abandoned when the timer fires.
func (m *Manager) shutdown(reason string) {
	timeout := m.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// If any step hangs past the budget, force the process down.
	watchdog := time.AfterFunc(timeout+5*time.Second, func() {
		m.logger.Error(ctx, "shutdown hung, forcing exit")
		os.Exit(1)
	})
	defer watchdog.Stop()

	m.logger.Info(ctx, "shutting down", "reason", reason)

	// Step 1: end the active session.
	if m.stateMgr != nil {
		if err := m.stateMgr.EndSession(ctx, "daemon"); err != nil {
			m.logger.Warn(ctx, "end session failed", "error", err)
		}
	}

	// Step 2: stop workers in reverse order, best-effort.
	for i := len(m.workers) - 1; i >= 0; i-- {
		worker := m.workers[i]
		if err := worker.Stop(ctx); err != nil {
			m.logger.Warn(ctx, "worker stop failed", "worker", worker.Name(), "error", err)
		}
	}

	// Step 3: close the HTTP server and drop the port registration.
	if m.httpServer != nil {
		m.httpServer.Stop(ctx)
	}
	if m.ports != nil {
		if err := m.ports.UnregisterService(m.cfg.Server.ServiceName); err != nil {
			m.logger.Warn(ctx, "port unregister failed", "error", err)
		}
	}

	// Step 4: close the pool.
	if m.gateway != nil {
		if err := m.gateway.Close(); err != nil {
			m.logger.Warn(ctx, "pool close failed", "error", err)
		}
		m.dbHealthy.Store(false)
	}

	// Step 5: the singleton lock is released by Run's deferred cleanup.
	m.logger.Info(ctx, "shutdown complete")
}
