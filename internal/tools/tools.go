// Package tools implements the daemon's tool handlers and assembles the
// catalog wired into the registry.
package tools

import (
	"context"
	"strings"
	"time"

	"github.com/haasonsaas/aidis/internal/embeddings"
	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/observability"
	"github.com/haasonsaas/aidis/internal/registry"
	"github.com/haasonsaas/aidis/internal/state"
	"github.com/haasonsaas/aidis/internal/storage"
	"github.com/haasonsaas/aidis/pkg/models"
)

// Tool categories used by the help catalog.
const (
	CategoryNavigation = "navigation"
	CategoryContext    = "context"
	CategoryProject    = "project"
	CategoryDecision   = "decision"
	CategoryTask       = "task"
	CategoryComposite  = "composite"
)

// Deps carries everything the handlers need.
type Deps struct {
	Projects  *storage.ProjectStore
	Sessions  *storage.SessionStore
	Contexts  *storage.ContextStore
	Decisions *storage.DecisionStore
	Tasks     *storage.TaskStore

	State    *state.Manager
	Embedder embeddings.Provider
	Logger   *observability.Logger

	// Registry is the assembled catalog, bound after construction so the
	// navigation tools can describe it.
	Registry *registry.Registry

	// Prefix brands the navigation tool names (aidis_ping, ...).
	Prefix string

	// Version and StartTime feed the status report.
	Version   string
	StartTime time.Time

	// Health reports daemon health for aidis_status; wired by the
	// lifecycle manager.
	Health func(ctx context.Context) map[string]any
}

// Catalog assembles the full tool catalog for the registry.
func Catalog(deps *Deps) []registry.Definition {
	if deps.Prefix == "" {
		deps.Prefix = "aidis"
	}

	var defs []registry.Definition
	defs = append(defs, navigationTools(deps)...)
	defs = append(defs, contextTools(deps)...)
	defs = append(defs, projectTools(deps)...)
	defs = append(defs, decisionTools(deps)...)
	defs = append(defs, taskTools(deps)...)
	defs = append(defs, compositeTools(deps)...)

	// When the daemon runs without storage every data tool degrades to a
	// Transient error instead of a nil dereference.
	if deps.State == nil {
		for i := range defs {
			if defs[i].Category == CategoryNavigation {
				continue
			}
			defs[i].Handler = degradedHandler(defs[i].Name)
		}
	}
	return defs
}

func degradedHandler(name string) registry.Handler {
	return func(ctx context.Context, call registry.Call) (*registry.Result, error) {
		return nil, errs.E(errs.KindTransient,
			"%s needs storage, which is disabled or unavailable", name)
	}
}

// resolveProjectID resolves the project for a call: the explicit argument
// wins, then the session's project, then the ambient current project.
func (d *Deps) resolveProjectID(ctx context.Context, call registry.Call, explicit string) (string, error) {
	if explicit != "" {
		project, err := d.Projects.Resolve(ctx, explicit)
		if err != nil {
			return "", err
		}
		return project.ID, nil
	}

	session, err := d.State.EnsureSession(ctx, call.CallerID)
	if err != nil {
		return "", err
	}
	if session.ProjectID != "" {
		return session.ProjectID, nil
	}

	project, err := d.State.CurrentProject(ctx, call.CallerID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return "", errs.E(errs.KindNotFound,
				"no project selected; create one with project_create or switch with project_switch")
		}
		return "", err
	}
	return project.ID, nil
}

// Argument extraction helpers. The validator has already coerced and
// type-checked, so these only normalize the dynamic map access.

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func argInt(args map[string]any, key string, fallback int) int {
	return int(argFloat(args, key, float64(fallback)))
}

func argBool(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

func argStringSlice(args map[string]any, key string) []string {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

func argMap(args map[string]any, key string) map[string]any {
	if v, ok := args[key].(map[string]any); ok {
		return v
	}
	return nil
}

func trimmedTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func validateTags(tags []string) error {
	if len(tags) > models.MaxContextTags {
		return errs.E(errs.KindInvalidParams,
			"at most %d tags allowed, got %d", models.MaxContextTags, len(tags))
	}
	for _, tag := range tags {
		if len(tag) > models.MaxContextTagLength {
			return errs.E(errs.KindInvalidParams,
				"tag %q exceeds %d characters", tag, models.MaxContextTagLength)
		}
	}
	return nil
}
