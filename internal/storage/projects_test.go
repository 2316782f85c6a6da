package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

func projectRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "status", "git_repo_url",
		"root_directory", "metadata", "created_at", "updated_at",
	})
}

func TestProjectStoreCreate(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewProjectStore(gw)

	mock.ExpectExec("INSERT INTO projects").
		WithArgs(
			sqlmock.AnyArg(), // generated id
			"alpha",
			"auth service",
			"active",
			"", "",
			[]byte("{}"),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	project := &models.Project{Name: "alpha", Description: "auth service"}
	if err := store.Create(context.Background(), project); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if project.ID == "" {
		t.Fatal("Create() should assign an id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProjectStoreCreateDuplicateName(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewProjectStore(gw)

	mock.ExpectExec("INSERT INTO projects").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "projects_name_key"})

	err := store.Create(context.Background(), &models.Project{Name: "alpha"})
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("error kind = %q, want Conflict", errs.KindOf(err))
	}
}

func TestProjectStoreCreateEmptyName(t *testing.T) {
	gw, _ := setupMockGateway(t)
	store := NewProjectStore(gw)

	err := store.Create(context.Background(), &models.Project{Name: "  "})
	if errs.KindOf(err) != errs.KindInvalidParams {
		t.Fatalf("error kind = %q, want InvalidParams", errs.KindOf(err))
	}
}

func TestProjectStoreGetNotFound(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewProjectStore(gw)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE id").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "8f14e45f-ceea-4e8b-8d2f-2e6f2a1d9c01")
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("error kind = %q, want NotFound", errs.KindOf(err))
	}
}

func TestProjectStoreResolveByName(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewProjectStore(gw)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM projects WHERE name").
		WithArgs("alpha").
		WillReturnRows(projectRows().AddRow(
			"11111111-1111-1111-1111-111111111111", "alpha", "", "active",
			"", "", []byte("{}"), now, now,
		))

	project, err := store.Resolve(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if project.Name != "alpha" {
		t.Fatalf("Resolve() name = %q", project.Name)
	}
	if project.Status != models.ProjectStatusActive {
		t.Fatalf("Resolve() status = %q", project.Status)
	}
}

func TestProjectStoreDeleteMissing(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewProjectStore(gw)

	mock.ExpectExec("DELETE FROM projects").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "missing-id")
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("error kind = %q, want NotFound", errs.KindOf(err))
	}
}
