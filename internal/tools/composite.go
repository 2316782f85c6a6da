package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/aidis/internal/registry"
	"github.com/haasonsaas/aidis/internal/storage"
	"github.com/haasonsaas/aidis/pkg/models"
)

func compositeTools(deps *Deps) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "smart_search",
			Description: "Search contexts, decisions and tasks together and rank the results.",
			Category:    CategoryComposite,
			InputSchema: json.RawMessage(schemaSmartSearch),
			Examples:    []string{`smart_search(query="auth token refresh")`},
			Handler:     deps.smartSearch,
		},
		{
			Name:        "get_recommendations",
			Description: "Suggest next steps from open tasks, stale decisions and recent activity.",
			Category:    CategoryComposite,
			InputSchema: json.RawMessage(schemaRecommendations),
			Examples:    []string{`get_recommendations()`},
			Handler:     deps.getRecommendations,
		},
		{
			Name:        "project_insights",
			Description: "Summarize one project's health across contexts, decisions and tasks.",
			Category:    CategoryComposite,
			InputSchema: json.RawMessage(schemaProjectInsights),
			Examples:    []string{`project_insights()`},
			Handler:     deps.projectInsights,
		},
	}
}

// smartHit is one ranked result from a cross-domain search. The score is a
// handler-internal heuristic; ordering across runs is not pinned.
type smartHit struct {
	Kind        string  `json:"kind"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

func (d *Deps) smartSearch(ctx context.Context, call registry.Call) (*registry.Result, error) {
	query := argString(call.Args, "query")
	limit := argInt(call.Args, "limit", 10)

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	var hits []smartHit

	// Contexts via semantic search.
	if queryVec, err := d.Embedder.Embed(ctx, query); err == nil {
		results, err := d.Contexts.Search(ctx, queryVec, storage.SearchFilter{ProjectID: projectID}, limit)
		if err != nil {
			return nil, err
		}
		for _, result := range results {
			score := result.Similarity*100 + result.RelevanceScore
			hits = append(hits, smartHit{
				Kind:        "context",
				ID:          result.ID,
				Title:       snippet(result.Content, 80),
				Score:       score,
				Explanation: fmt.Sprintf("semantic similarity %.1f%%", result.Similarity*100),
			})
		}
	}

	// Decisions via text match.
	decisions, err := d.Decisions.Search(ctx, storage.DecisionFilter{
		ProjectID: projectID, Query: query, Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	for _, decision := range decisions {
		score := 60.0
		if decision.ImpactLevel == models.ImpactHigh || decision.ImpactLevel == models.ImpactCritical {
			score += 10
		}
		hits = append(hits, smartHit{
			Kind:        "decision",
			ID:          decision.ID,
			Title:       decision.Title,
			Score:       score,
			Explanation: fmt.Sprintf("text match, %s impact", decision.ImpactLevel),
		})
	}

	// Tasks via title/tag scan.
	tasks, err := d.Tasks.List(ctx, storage.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	lowered := strings.ToLower(query)
	for _, task := range tasks {
		if !strings.Contains(strings.ToLower(task.Title), lowered) &&
			!strings.Contains(strings.ToLower(task.Description), lowered) {
			continue
		}
		score := 50.0
		if task.Status == models.TaskStatusInProgress {
			score += 15
		}
		hits = append(hits, smartHit{
			Kind:        "task",
			ID:          task.ID,
			Title:       task.Title,
			Score:       score,
			Explanation: fmt.Sprintf("title match, status %s", task.Status),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Smart search found %d results for %q\n", len(hits), query)
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. [%s] %s (%s)\n", i+1, hit.Kind, hit.Title, hit.Explanation)
	}
	return registry.Text(b.String(), hits), nil
}

func (d *Deps) getRecommendations(ctx context.Context, call registry.Call) (*registry.Result, error) {
	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	var recommendations []string

	tasks, err := d.Tasks.List(ctx, storage.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	var blocked, urgent, inProgress int
	for _, task := range tasks {
		switch {
		case task.Status == models.TaskStatusBlocked:
			blocked++
		case task.Status == models.TaskStatusInProgress:
			inProgress++
		}
		if task.Priority == models.TaskPriorityUrgent && task.Status != models.TaskStatusCompleted {
			urgent++
		}
	}
	if blocked > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d tasks are blocked; review their dependencies with task_list(statuses=[\"blocked\"])", blocked))
	}
	if urgent > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d urgent tasks are open; consider finishing them before new work", urgent))
	}
	if inProgress > 3 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d tasks are in progress at once; finishing some reduces context switching", inProgress))
	}

	decisions, err := d.Decisions.Search(ctx, storage.DecisionFilter{
		ProjectID: projectID, Status: models.OutcomeUnknown, Limit: 50,
	})
	if err != nil {
		return nil, err
	}
	if len(decisions) > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d decisions have no recorded outcome; update them with decision_update", len(decisions)))
	}

	stats, err := d.Contexts.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if stats.Recent24h == 0 && stats.TotalContexts > 0 {
		recommendations = append(recommendations,
			"no context stored in the last 24 hours; store session learnings with context_store")
	}
	if stats.TotalContexts == 0 {
		recommendations = append(recommendations,
			"this project has no stored context yet; start with context_store")
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "nothing urgent; project state looks healthy")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d recommendations\n", len(recommendations))
	for i, rec := range recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}
	return registry.Text(b.String(), recommendations), nil
}

func (d *Deps) projectInsights(ctx context.Context, call registry.Call) (*registry.Result, error) {
	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}
	project, err := d.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	contextStats, err := d.Contexts.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	decisionStats, err := d.Decisions.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := d.Tasks.List(ctx, storage.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	taskSummary := summarizeTasks(tasks, "status")

	insights := map[string]any{
		"project":   project,
		"contexts":  contextStats,
		"decisions": decisionStats,
		"tasks":     taskSummary,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Insights for %q\n", project.Name)
	fmt.Fprintf(&b, "  contexts: %d (%d in last 24h)\n", contextStats.TotalContexts, contextStats.Recent24h)
	fmt.Fprintf(&b, "  decisions: %d, success rate %.0f%%\n", decisionStats.TotalDecisions, decisionStats.SuccessRate)
	fmt.Fprintf(&b, "  tasks: %d, %.0f%% complete\n", taskSummary.TotalTasks, taskSummary.CompletionPercent)
	return registry.Text(b.String(), insights), nil
}
