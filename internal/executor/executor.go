// Package executor is the single entry point for tool execution shared by
// both transports. It binds the correlation id, validates arguments,
// dispatches to the handler and converts panics into typed errors.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/observability"
	"github.com/haasonsaas/aidis/internal/registry"
	"github.com/haasonsaas/aidis/internal/validate"
)

// Executor dispatches tool calls. It is stateless across calls except for
// the ambient session/project state the handlers consult, so concurrent
// calls are safe.
type Executor struct {
	registry *registry.Registry
	logger   *observability.Logger
	metrics  *observability.Metrics

	// timeout bounds a single tool call; the handler's context is
	// cancelled when it expires.
	timeout time.Duration
}

// New creates an executor over the registry.
func New(reg *registry.Registry, logger *observability.Logger, metrics *observability.Metrics, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		registry: reg,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// Registry exposes the catalog for the transports' listing endpoints.
func (e *Executor) Registry() *registry.Registry {
	return e.registry
}

// Execute runs one tool call. A missing correlation id is generated here;
// it is bound to the logging context for the duration of the call.
func (e *Executor) Execute(ctx context.Context, toolName string, args map[string]any, correlationID, callerID string) (result *registry.Result, err error) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = observability.WithCorrelationID(ctx, correlationID)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(errs.KindOf(err))
		}
		e.metrics.ObserveToolCall(toolName, outcome, time.Since(start))
	}()

	def, ok := e.registry.Get(toolName)
	if !ok {
		err = errs.E(errs.KindNotFound, "unknown tool %q", toolName)
		e.logger.Warn(ctx, "tool not found", "tool", toolName)
		return nil, err
	}

	coerced, err := validate.Validate(toolName, def.InputSchema, args)
	if err != nil {
		e.logger.Warn(ctx, "tool arguments rejected", "tool", toolName, "error", err)
		return nil, err
	}

	call := registry.Call{
		Tool:          toolName,
		Args:          coerced,
		CallerID:      callerID,
		CorrelationID: correlationID,
	}

	e.logger.Debug(ctx, "executing tool", "tool", toolName)
	result, err = e.invoke(ctx, def, call)
	if err != nil {
		e.logger.Error(ctx, "tool failed",
			"tool", toolName, "kind", string(errs.KindOf(err)), "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	e.logger.Info(ctx, "tool completed",
		"tool", toolName, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// invoke runs the handler, converting panics into Internal errors so a
// broken handler cannot take down the transport loop.
func (e *Executor) invoke(ctx context.Context, def *registry.Definition, call registry.Call) (result *registry.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error(ctx, "tool panicked",
				"tool", call.Tool, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
			result = nil
			err = errs.E(errs.KindInternal, "tool %s panicked: %v", call.Tool, p)
		}
	}()

	result, err = def.Handler(ctx, call)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errs.E(errs.KindInternal, "tool %s returned no result", call.Tool)
	}
	return result, nil
}
