package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

func taskRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "title", "description", "task_type", "priority", "status",
		"assigned_to", "created_by", "tags", "dependencies", "metadata",
		"created_at", "updated_at", "started_at", "completed_at",
	})
}

func addTaskRow(rows *sqlmock.Rows, id, title, status string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "project-1", title, "", "", "medium", status,
		"", "", "{}", "{}", []byte("{}"),
		now, now, nil, nil,
	)
}

func TestTaskBulkUpdateAllSucceed(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewTaskStore(gw)

	mock.ExpectBegin()
	for _, id := range []string{"t1", "t2"} {
		mock.ExpectQuery("SELECT .+ FROM tasks WHERE id .+ FOR UPDATE").
			WillReturnRows(addTaskRow(taskRows(), id, "task "+id, "todo"))
		mock.ExpectExec("UPDATE tasks SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	result, err := store.BulkUpdate(context.Background(), []string{"t1", "t2"}, "project-1",
		TaskUpdate{Status: models.TaskStatusCompleted})
	if err != nil {
		t.Fatalf("BulkUpdate() error = %v", err)
	}
	if result.SuccessfullyUpdated != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 2 updated", result)
	}
	if len(result.UpdatedTaskIDs) != 2 {
		t.Fatalf("updated ids = %v", result.UpdatedTaskIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// A single missing task rolls back the whole batch: nothing is updated.
func TestTaskBulkUpdateAtomicRollback(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewTaskStore(gw)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnRows(addTaskRow(taskRows(), "t1", "task t1", "todo"))
	mock.ExpectExec("UPDATE tasks SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	result, err := store.BulkUpdate(context.Background(), []string{"t1", "does-not-exist"}, "project-1",
		TaskUpdate{Status: models.TaskStatusCompleted})
	if err == nil {
		t.Fatal("BulkUpdate() should fail when a task is missing")
	}
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("error kind = %q, want NotFound", errs.KindOf(err))
	}
	if result.SuccessfullyUpdated != 0 {
		t.Fatalf("successfullyUpdated = %d, want 0", result.SuccessfullyUpdated)
	}
	if result.Failed != 2 {
		t.Fatalf("failed = %d, want all 2 reported failed", result.Failed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTaskUpdateSetsCompletionTimestamp(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewTaskStore(gw)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnRows(addTaskRow(taskRows(), "t1", "ship it", "in_progress"))
	mock.ExpectExec("UPDATE tasks SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := store.Update(context.Background(), "t1", "project-1",
		TaskUpdate{Status: models.TaskStatusCompleted})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %q", task.Status)
	}
	if task.CompletedAt == nil {
		t.Fatal("completed_at must be set when status is completed")
	}
}

func TestTaskUpdateInvalidStatus(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewTaskStore(gw)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnRows(addTaskRow(taskRows(), "t1", "ship it", "todo"))
	mock.ExpectRollback()

	_, err := store.Update(context.Background(), "t1", "project-1",
		TaskUpdate{Status: models.TaskStatus("galloping")})
	if errs.KindOf(err) != errs.KindInvalidParams {
		t.Fatalf("error kind = %q, want InvalidParams", errs.KindOf(err))
	}
}
