package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

func TestDecisionStoreCreateDefaults(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewDecisionStore(gw)

	mock.ExpectExec("INSERT INTO decisions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	decision := &models.Decision{
		ProjectID:   "project-1",
		Type:        models.DecisionTypeDatabase,
		Title:       "Choose Postgres",
		Description: "relational plus vector",
		Rationale:   "pgvector support",
		ImpactLevel: models.ImpactHigh,
	}
	if err := store.Create(context.Background(), decision); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if decision.OutcomeStatus != models.OutcomeUnknown {
		t.Fatalf("outcome = %q, want default unknown", decision.OutcomeStatus)
	}
	if decision.DecisionDate.IsZero() {
		t.Fatal("decision date should default to now")
	}
}

// decision_update may touch only the outcome columns; the UPDATE statement
// names nothing else.
func TestDecisionUpdateOutcomeOnly(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewDecisionStore(gw)

	mock.ExpectExec(`UPDATE decisions SET\s+outcome_status = .+outcome_notes = .+lessons_learned = .+updated_at = .+WHERE id = .+ AND project_id = `).
		WithArgs("successful", "", "Indexed vectors pay off", sqlmock.AnyArg(), "d1", "project-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateOutcome(context.Background(), "d1", "project-1",
		models.OutcomeSuccessful, "", "Indexed vectors pay off")
	if err != nil {
		t.Fatalf("UpdateOutcome() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDecisionUpdateOutcomeMissing(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewDecisionStore(gw)

	mock.ExpectExec("UPDATE decisions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateOutcome(context.Background(), "ghost", "project-1",
		models.OutcomeFailed, "", "")
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("error kind = %q, want NotFound", errs.KindOf(err))
	}
}

func TestDecisionStatsSuccessRate(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewDecisionStore(gw)

	rows := sqlmock.NewRows([]string{"decision_type", "impact_level", "outcome_status", "count"}).
		AddRow("database", "high", "successful", 3).
		AddRow("library", "low", "failed", 1).
		AddRow("testing", "medium", "unknown", 2)

	mock.ExpectQuery("SELECT decision_type, impact_level, outcome_status, count").
		WithArgs("project-1").
		WillReturnRows(rows)

	stats, err := store.Stats(context.Background(), "project-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalDecisions != 6 {
		t.Fatalf("total = %d, want 6", stats.TotalDecisions)
	}
	// 3 successful of 4 concluded; the 2 unknown do not count.
	if stats.SuccessRate != 75 {
		t.Fatalf("success rate = %f, want 75", stats.SuccessRate)
	}
	if stats.ByType[models.DecisionTypeDatabase] != 3 {
		t.Fatalf("by type = %v", stats.ByType)
	}
}

func TestDecisionStatsSingleSuccess(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewDecisionStore(gw)

	rows := sqlmock.NewRows([]string{"decision_type", "impact_level", "outcome_status", "count"}).
		AddRow("database", "high", "successful", 1)

	mock.ExpectQuery("SELECT decision_type, impact_level, outcome_status, count").
		WillReturnRows(rows)

	stats, err := store.Stats(context.Background(), "project-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.SuccessRate != 100 {
		t.Fatalf("success rate = %f, want 100 for a single successful decision", stats.SuccessRate)
	}
}
