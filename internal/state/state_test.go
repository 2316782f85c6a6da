package state

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/observability"
	"github.com/haasonsaas/aidis/internal/storage"
)

func setupManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gw := storage.NewGatewayFromDB(db)
	manager := NewManager(gw,
		storage.NewProjectStore(gw),
		storage.NewSessionStore(gw),
		observability.NewNopLogger())
	return manager, mock
}

func projectRow(id, name, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "status", "git_repo_url",
		"root_directory", "metadata", "created_at", "updated_at",
	}).AddRow(id, name, "", status, "", "", []byte("{}"), now, now)
}

func TestSwitchProjectUnknownTarget(t *testing.T) {
	manager, mock := setupManager(t)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE name").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := manager.SwitchProject(context.Background(), "caller", "ghost")
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("error kind = %q, want NotFound", errs.KindOf(err))
	}
}

// An archived project fails pre-switch validation before any state is
// touched: no session rows are read or written.
func TestSwitchProjectArchivedTarget(t *testing.T) {
	manager, mock := setupManager(t)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE name").
		WithArgs("old").
		WillReturnRows(projectRow("22222222-2222-2222-2222-222222222222", "old", "archived"))

	_, err := manager.SwitchProject(context.Background(), "caller", "old")
	if errs.KindOf(err) != errs.KindPreSwitchValidationFailed {
		t.Fatalf("error kind = %q, want PreSwitchValidationFailed", errs.KindOf(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected extra queries: %v", err)
	}
}

func TestSwitchProjectEmptyRef(t *testing.T) {
	manager, _ := setupManager(t)

	_, err := manager.SwitchProject(context.Background(), "caller", "  ")
	if errs.KindOf(err) != errs.KindInvalidParams {
		t.Fatalf("error kind = %q, want InvalidParams", errs.KindOf(err))
	}
}

func TestCurrentProjectIDIndependentPerCaller(t *testing.T) {
	manager, _ := setupManager(t)

	if id := manager.CurrentProjectID("caller-a"); id != "" {
		t.Fatalf("fresh caller project = %q, want empty", id)
	}
	if id := manager.CurrentProjectID("caller-b"); id != "" {
		t.Fatalf("fresh caller project = %q, want empty", id)
	}
}

func TestEndSessionWithoutActive(t *testing.T) {
	manager, mock := setupManager(t)

	mock.ExpectQuery("SELECT .+ FROM sessions").
		WillReturnError(sql.ErrNoRows)

	if err := manager.EndSession(context.Background(), "caller"); err != nil {
		t.Fatalf("EndSession() with no active session = %v, want nil", err)
	}
}
