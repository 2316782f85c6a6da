package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/registry"
	"github.com/haasonsaas/aidis/internal/storage"
	"github.com/haasonsaas/aidis/pkg/models"
)

func contextTools(deps *Deps) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "context_store",
			Description: "Store development context with semantic indexing for later search.",
			Category:    CategoryContext,
			InputSchema: json.RawMessage(schemaContextStore),
			Examples: []string{
				`context_store(content="Implemented JWT refresh flow", type="code", tags=["auth","jwt"])`,
			},
			Handler: deps.contextStore,
		},
		{
			Name:        "context_search",
			Description: "Semantic search over stored contexts in the current project.",
			Category:    CategoryContext,
			InputSchema: json.RawMessage(schemaContextSearch),
			Examples: []string{
				`context_search(query="refresh token implementation", limit=5)`,
			},
			Handler: deps.contextSearch,
		},
		{
			Name:        "context_get_recent",
			Description: "Return the newest stored contexts, newest first.",
			Category:    CategoryContext,
			InputSchema: json.RawMessage(schemaContextGetRecent),
			Examples:    []string{`context_get_recent(limit=5)`},
			Handler:     deps.contextGetRecent,
		},
		{
			Name:        "context_stats",
			Description: "Summarize the project's contexts: totals, embeddings, recent activity.",
			Category:    CategoryContext,
			InputSchema: json.RawMessage(schemaContextStats),
			Examples:    []string{`context_stats()`},
			Handler:     deps.contextStats,
		},
		{
			Name:        "context_delete",
			Description: "Delete a context by id; the project must match.",
			Category:    CategoryContext,
			InputSchema: json.RawMessage(schemaContextDelete),
			Examples:    []string{`context_delete(contextId="...", projectId="...")`},
			Handler:     deps.contextDelete,
		},
	}
}

func (d *Deps) contextStore(ctx context.Context, call registry.Call) (*registry.Result, error) {
	content := argString(call.Args, "content")
	if strings.TrimSpace(content) == "" {
		return nil, errs.E(errs.KindInvalidParams, "content must not be empty")
	}
	if len(content) > models.MaxContextContentLength {
		return nil, errs.E(errs.KindInvalidParams,
			"content exceeds %d characters", models.MaxContextContentLength)
	}

	contextType := models.ContextType(argString(call.Args, "type"))
	if !models.ValidContextType(contextType) {
		return nil, errs.E(errs.KindInvalidParams, "unknown context type %q", contextType)
	}

	tags := trimmedTags(argStringSlice(call.Args, "tags"))
	if err := validateTags(tags); err != nil {
		return nil, err
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	sessionID := argString(call.Args, "sessionId")
	if sessionID == "" {
		sessionID = d.State.SessionID(call.CallerID)
	}

	relevance := argFloat(call.Args, "relevanceScore", 5)
	if relevance < 0 || relevance > 10 {
		return nil, errs.E(errs.KindInvalidParams, "relevanceScore must be between 0 and 10")
	}

	embedding, err := d.Embedder.Embed(ctx, content)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "embed content")
	}

	entry := &models.Context{
		ProjectID:      projectID,
		SessionID:      sessionID,
		Type:           contextType,
		Content:        content,
		Tags:           tags,
		RelevanceScore: relevance,
		Metadata:       argMap(call.Args, "metadata"),
		Embedding:      embedding,
	}
	if err := d.Contexts.Create(ctx, entry); err != nil {
		return nil, err
	}

	d.Logger.Info(ctx, "stored context",
		"context_id", entry.ID, "type", string(contextType), "stored_project_id", projectID)

	text := fmt.Sprintf("Stored %s context %s (%d chars, %d tags)",
		contextType, entry.ID, len(content), len(tags))
	return registry.Text(text, entry), nil
}

func (d *Deps) contextSearch(ctx context.Context, call registry.Call) (*registry.Result, error) {
	query := argString(call.Args, "query")
	if strings.TrimSpace(query) == "" {
		return nil, errs.E(errs.KindInvalidParams, "query must not be empty")
	}

	limit := argInt(call.Args, "limit", 10)
	if limit < 1 || limit > 50 {
		return nil, errs.E(errs.KindInvalidParams, "limit must be between 1 and 50")
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	queryVec, err := d.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "embed query")
	}

	// minSimilarity arrives as a percentage; the store works in [0,1].
	minSimilarity := argFloat(call.Args, "minSimilarity", 0) / 100

	filter := storage.SearchFilter{
		ProjectID:     projectID,
		Type:          models.ContextType(argString(call.Args, "type")),
		Tags:          argStringSlice(call.Args, "tags"),
		MinSimilarity: minSimilarity,
	}

	results, err := d.Contexts.Search(ctx, queryVec, filter, limit)
	if err != nil {
		return nil, err
	}

	// Callers see similarity as a percentage.
	rows := make([]models.ContextSearchResult, 0, len(results))
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d contexts for %q\n", len(results), query)
	for i, result := range results {
		pct := result.Similarity * 100
		rows = append(rows, models.ContextSearchResult{Context: result.Context, Similarity: pct})
		fmt.Fprintf(&b, "%d. [%.1f%%] (%s) %s\n", i+1, pct, result.Type, snippet(result.Content, 120))
	}
	return registry.Text(b.String(), rows), nil
}

func (d *Deps) contextGetRecent(ctx context.Context, call registry.Call) (*registry.Result, error) {
	limit := argInt(call.Args, "limit", 5)
	if limit < 1 || limit > 20 {
		return nil, errs.E(errs.KindInvalidParams, "limit must be between 1 and 20")
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	contexts, err := d.Contexts.GetRecent(ctx, projectID, limit)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d recent contexts\n", len(contexts))
	for i, entry := range contexts {
		fmt.Fprintf(&b, "%d. (%s) %s - %s\n", i+1, entry.Type,
			snippet(entry.Content, 120), entry.CreatedAt.Format("2006-01-02 15:04"))
	}
	return registry.Text(b.String(), contexts), nil
}

func (d *Deps) contextStats(ctx context.Context, call registry.Call) (*registry.Result, error) {
	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	stats, err := d.Contexts.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Context stats: %d total, %d with embeddings, %d in the last 24h\n",
		stats.TotalContexts, stats.WithEmbeddings, stats.Recent24h)
	for contextType, count := range stats.ByType {
		fmt.Fprintf(&b, "  %s: %d\n", contextType, count)
	}
	return registry.Text(b.String(), stats), nil
}

func (d *Deps) contextDelete(ctx context.Context, call registry.Call) (*registry.Result, error) {
	contextID := argString(call.Args, "contextId")
	projectRef := argString(call.Args, "projectId")
	if contextID == "" || projectRef == "" {
		return nil, errs.E(errs.KindInvalidParams, "contextId and projectId are both required")
	}

	project, err := d.Projects.Resolve(ctx, projectRef)
	if err != nil {
		return nil, err
	}
	if err := d.Contexts.Delete(ctx, contextID, project.ID); err != nil {
		return nil, err
	}
	return registry.Textf("Deleted context %s", contextID), nil
}

func snippet(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
