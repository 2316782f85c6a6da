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

func decisionTools(deps *Deps) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "decision_record",
			Description: "Record a technical decision with rationale and impact.",
			Category:    CategoryDecision,
			InputSchema: json.RawMessage(schemaDecisionRecord),
			Examples: []string{
				`decision_record(decisionType="database", title="Choose Postgres", description="...", rationale="...", impactLevel="high")`,
			},
			Handler: deps.decisionRecord,
		},
		{
			Name:        "decision_search",
			Description: "Search decisions by free text and structured filters.",
			Category:    CategoryDecision,
			InputSchema: json.RawMessage(schemaDecisionSearch),
			Examples:    []string{`decision_search(query="postgres", impactLevel="high")`},
			Handler:     deps.decisionSearch,
		},
		{
			Name:        "decision_update",
			Description: "Record the outcome of a decision. Only outcome fields may change.",
			Category:    CategoryDecision,
			InputSchema: json.RawMessage(schemaDecisionUpdate),
			Examples: []string{
				`decision_update(decisionId="...", outcomeStatus="successful", lessonsLearned="...")`,
			},
			Handler: deps.decisionUpdate,
		},
		{
			Name:        "decision_stats",
			Description: "Summarize decisions by type, impact and outcome, with a success rate.",
			Category:    CategoryDecision,
			InputSchema: json.RawMessage(schemaDecisionStats),
			Examples:    []string{`decision_stats()`},
			Handler:     deps.decisionStats,
		},
		{
			Name:        "decision_delete",
			Description: "Delete a recorded decision.",
			Category:    CategoryDecision,
			InputSchema: json.RawMessage(schemaDecisionDelete),
			Examples:    []string{`decision_delete(decisionId="...")`},
			Handler:     deps.decisionDelete,
		},
	}
}

func (d *Deps) decisionRecord(ctx context.Context, call registry.Call) (*registry.Result, error) {
	decisionType := models.DecisionType(argString(call.Args, "decisionType"))
	if !models.ValidDecisionType(decisionType) {
		return nil, errs.E(errs.KindInvalidParams, "unknown decision type %q", decisionType)
	}
	impact := models.ImpactLevel(argString(call.Args, "impactLevel"))
	if !models.ValidImpactLevel(impact) {
		return nil, errs.E(errs.KindInvalidParams, "unknown impact level %q", impact)
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	decision := &models.Decision{
		ProjectID:              projectID,
		Type:                   decisionType,
		Title:                  argString(call.Args, "title"),
		Description:            argString(call.Args, "description"),
		Rationale:              argString(call.Args, "rationale"),
		ImpactLevel:            impact,
		AlternativesConsidered: parseAlternatives(call.Args["alternativesConsidered"]),
		ProblemStatement:       argString(call.Args, "problemStatement"),
		AffectedComponents:     argStringSlice(call.Args, "affectedComponents"),
		Tags:                   trimmedTags(argStringSlice(call.Args, "tags")),
	}
	if err := d.Decisions.Create(ctx, decision); err != nil {
		return nil, err
	}

	d.Logger.Info(ctx, "recorded decision",
		"decision_id", decision.ID, "type", string(decisionType), "impact", string(impact))
	text := fmt.Sprintf("Recorded %s decision %q (%s impact)", decisionType, decision.Title, impact)
	return registry.Text(text, decision), nil
}

func parseAlternatives(raw any) []models.Alternative {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]models.Alternative, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Alternative{
			Name:           argString(m, "name"),
			Pros:           argStringSlice(m, "pros"),
			Cons:           argStringSlice(m, "cons"),
			ReasonRejected: argString(m, "reasonRejected"),
		})
	}
	return out
}

func (d *Deps) decisionSearch(ctx context.Context, call registry.Call) (*registry.Result, error) {
	limit := argInt(call.Args, "limit", 20)
	if limit < 1 || limit > 50 {
		return nil, errs.E(errs.KindInvalidParams, "limit must be between 1 and 50")
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	filter := storage.DecisionFilter{
		ProjectID: projectID,
		Query:     argString(call.Args, "query"),
		Type:      models.DecisionType(argString(call.Args, "decisionType")),
		Impact:    models.ImpactLevel(argString(call.Args, "impactLevel")),
		Status:    models.OutcomeStatus(argString(call.Args, "outcomeStatus")),
		Tags:      argStringSlice(call.Args, "tags"),
		Limit:     limit,
	}

	decisions, err := d.Decisions.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d decisions\n", len(decisions))
	for i, decision := range decisions {
		fmt.Fprintf(&b, "%d. [%s/%s] %s - %s\n", i+1,
			decision.Type, decision.ImpactLevel, decision.Title, decision.OutcomeStatus)
	}
	return registry.Text(b.String(), decisions), nil
}

func (d *Deps) decisionUpdate(ctx context.Context, call registry.Call) (*registry.Result, error) {
	decisionID := argString(call.Args, "decisionId")

	status := models.OutcomeStatus(argString(call.Args, "outcomeStatus"))
	if status != "" && !models.ValidOutcomeStatus(status) {
		return nil, errs.E(errs.KindInvalidParams, "unknown outcome status %q", status)
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	err = d.Decisions.UpdateOutcome(ctx, decisionID, projectID, status,
		argString(call.Args, "outcomeNotes"),
		argString(call.Args, "lessonsLearned"))
	if err != nil {
		return nil, err
	}

	decision, err := d.Decisions.Get(ctx, decisionID, projectID)
	if err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("Updated outcome of %q to %s", decision.Title, decision.OutcomeStatus), decision), nil
}

func (d *Deps) decisionStats(ctx context.Context, call registry.Call) (*registry.Result, error) {
	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	stats, err := d.Decisions.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Decision stats: %d total, success rate %.0f%%\n", stats.TotalDecisions, stats.SuccessRate)
	for decisionType, count := range stats.ByType {
		fmt.Fprintf(&b, "  type %s: %d\n", decisionType, count)
	}
	for status, count := range stats.ByStatus {
		fmt.Fprintf(&b, "  outcome %s: %d\n", status, count)
	}
	for impact, count := range stats.ByImpact {
		fmt.Fprintf(&b, "  impact %s: %d\n", impact, count)
	}
	return registry.Text(b.String(), stats), nil
}

func (d *Deps) decisionDelete(ctx context.Context, call registry.Call) (*registry.Result, error) {
	decisionID := argString(call.Args, "decisionId")
	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}
	if err := d.Decisions.Delete(ctx, decisionID, projectID); err != nil {
		return nil, err
	}
	return registry.Textf("Deleted decision %s", decisionID), nil
}
