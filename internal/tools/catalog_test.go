package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/aidis/internal/embeddings"
	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/observability"
	"github.com/haasonsaas/aidis/internal/registry"
)

func testDeps() *Deps {
	return &Deps{
		Logger:    observability.NewNopLogger(),
		Embedder:  embeddings.NewLocal(384),
		Prefix:    "aidis",
		Version:   "test",
		StartTime: time.Now(),
	}
}

// The canonical catalog: every tool the daemon ships.
func TestCatalogComplete(t *testing.T) {
	defs := Catalog(testDeps())
	reg, err := registry.New(defs)
	require.NoError(t, err)

	want := []string{
		"aidis_ping", "aidis_status", "aidis_help", "aidis_explain", "aidis_examples",
		"context_store", "context_search", "context_get_recent", "context_stats", "context_delete",
		"project_list", "project_create", "project_switch", "project_current", "project_info", "project_delete",
		"decision_record", "decision_search", "decision_update", "decision_stats", "decision_delete",
		"task_create", "task_list", "task_update", "task_details", "task_bulk_update",
		"task_progress_summary", "task_delete",
		"smart_search", "get_recommendations", "project_insights",
	}
	require.Len(t, defs, len(want))
	for _, name := range want {
		_, ok := reg.Get(name)
		require.True(t, ok, "catalog missing %s", name)
	}

	for _, def := range defs {
		require.NotEmpty(t, def.Description, "%s has no description", def.Name)
		require.NotEmpty(t, def.Category, "%s has no category", def.Name)
		require.NotEmpty(t, def.InputSchema, "%s has no input schema", def.Name)
	}
}

func TestCatalogPrefix(t *testing.T) {
	deps := testDeps()
	deps.Prefix = "mandrel"
	reg, err := registry.New(Catalog(deps))
	require.NoError(t, err)

	_, ok := reg.Get("mandrel_ping")
	require.True(t, ok, "prefix should brand the navigation tools")
	_, ok = reg.Get("aidis_ping")
	require.False(t, ok)

	// Domain tools stay unprefixed.
	_, ok = reg.Get("context_store")
	require.True(t, ok)
}

// Without storage the data tools degrade to Transient instead of panicking.
func TestCatalogDegradesWithoutStorage(t *testing.T) {
	deps := testDeps()
	reg, err := registry.New(Catalog(deps))
	require.NoError(t, err)
	deps.Registry = reg

	def, ok := reg.Get("context_store")
	require.True(t, ok)

	_, err = def.Handler(context.Background(), registry.Call{Tool: "context_store"})
	require.Error(t, err)
	require.Equal(t, errs.KindTransient, errs.KindOf(err))

	// Navigation still works.
	ping, _ := reg.Get("aidis_ping")
	result, err := ping.Handler(context.Background(), registry.Call{Tool: "aidis_ping"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
}

func TestHelpGroupsByCategory(t *testing.T) {
	deps := testDeps()
	reg, err := registry.New(Catalog(deps))
	require.NoError(t, err)
	deps.Registry = reg

	result, err := deps.help(context.Background(), registry.Call{})
	require.NoError(t, err)
	text := result.Content[0].Text
	for _, category := range []string{CategoryNavigation, CategoryContext, CategoryProject, CategoryDecision, CategoryTask, CategoryComposite} {
		require.Contains(t, text, category+":")
	}
}

func TestExplainAndExamples(t *testing.T) {
	deps := testDeps()
	reg, err := registry.New(Catalog(deps))
	require.NoError(t, err)
	deps.Registry = reg

	result, err := deps.explain(context.Background(), registry.Call{
		Args: map[string]any{"toolName": "context_search"},
	})
	require.NoError(t, err)
	require.Contains(t, result.Content[0].Text, "context_search")
	require.Contains(t, result.Content[0].Text, "Input schema")

	result, err = deps.examples(context.Background(), registry.Call{
		Args: map[string]any{"toolName": "context_store"},
	})
	require.NoError(t, err)
	require.Contains(t, result.Content[0].Text, "context_store(")

	// Unprefixed navigation names resolve too.
	_, err = deps.explain(context.Background(), registry.Call{
		Args: map[string]any{"toolName": "ping"},
	})
	require.NoError(t, err)

	_, err = deps.explain(context.Background(), registry.Call{
		Args: map[string]any{"toolName": "no_such_tool"},
	})
	require.Equal(t, errs.KindNotFound, errs.KindOf(err))
}
