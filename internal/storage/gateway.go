// Package storage provides pooled transactional access to the
// relational+vector store and the per-entity stores built on it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/haasonsaas/aidis/internal/errs"
)

// Config bounds the connection pool.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// ConnectTimeout bounds the initial ping. Connection acquisition in Tx
	// is bounded by the caller's context, not by this setting.
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible pool defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// Gateway owns the connection pool. All handler reads and writes go through
// it; the pool is the only globally shared mutable resource in the daemon.
type Gateway struct {
	db  *sql.DB
	cfg Config
}

// NewGateway opens the pool and verifies connectivity with a bounded ping.
func NewGateway(dsn string, cfg Config) (*Gateway, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg = DefaultConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.KindTransient, err, "ping database")
	}

	return &Gateway{db: db, cfg: cfg}, nil
}

// NewGatewayFromDB wraps an existing handle. Used by tests with sqlmock.
func NewGatewayFromDB(db *sql.DB) *Gateway {
	return &Gateway{db: db, cfg: DefaultConfig()}
}

// DB exposes the underlying pool for the per-entity stores.
func (g *Gateway) DB() *sql.DB {
	return g.db
}

// Close shuts the pool down.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// Tx runs fn inside BEGIN/COMMIT, rolling back on error or panic. All
// writes performed by a handler inside one tool call run through a single
// Tx call.
func (g *Gateway) Tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	// The context governs the whole transaction, so acquisition shares the
	// caller's deadline; a pool exhausted past it reports as such.
	tx, beginErr := g.db.BeginTx(ctx, nil)
	if beginErr != nil {
		if errors.Is(beginErr, context.DeadlineExceeded) {
			return errs.Wrap(errs.KindResourceExhausted, beginErr, "acquire connection")
		}
		return MapError(beginErr, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return MapError(err, "commit transaction")
	}
	return nil
}

// Health describes the pool for readiness reporting.
type Health struct {
	Healthy     bool    `json:"healthy"`
	OpenConns   int     `json:"open_connections"`
	InUse       int     `json:"active"`
	Idle        int     `json:"idle"`
	Utilization float64 `json:"utilization"`
}

// Healthz probes the pool with a short budget and reports its state. It
// never blocks longer than two seconds.
func (g *Gateway) Healthz(ctx context.Context) Health {
	stats := g.db.Stats()
	h := Health{
		OpenConns: stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
	}
	if stats.MaxOpenConnections > 0 {
		h.Utilization = float64(stats.InUse) / float64(stats.MaxOpenConnections)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	h.Healthy = g.db.PingContext(pingCtx) == nil
	return h
}

// MapError classifies a database error into the daemon's typed kinds:
// unique violations become Conflict, missing rows NotFound, connection
// failures Transient, anything else Internal.
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.KindNotFound, err, "%s", op)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity constraint violation
			return errs.Wrap(errs.KindConflict, err, "%s", op)
		case "08": // connection exception
			return errs.Wrap(errs.KindTransient, err, "%s", op)
		case "53": // insufficient resources
			return errs.Wrap(errs.KindResourceExhausted, err, "%s", op)
		}
		return errs.Wrap(errs.KindInternal, err, "%s", op)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTransient, err, "%s", op)
	}
	if strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "bad connection") {
		return errs.Wrap(errs.KindTransient, err, "%s", op)
	}
	return errs.Wrap(errs.KindInternal, err, "%s", op)
}
