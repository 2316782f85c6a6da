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

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "started_at", "ended_at", "title",
		"description", "goal", "tags", "agent_model",
	})
}

func TestSessionStoreCreateAssignsID(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewSessionStore(gw)

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{ProjectID: "project-1"}
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.ID == "" || session.StartedAt.IsZero() {
		t.Fatalf("session defaults missing: %+v", session)
	}
}

func TestSessionStoreActiveNone(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewSessionStore(gw)

	mock.ExpectQuery("SELECT .+ FROM sessions\\s+WHERE ended_at IS NULL").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Active(context.Background())
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("error kind = %q, want NotFound", errs.KindOf(err))
	}
}

func TestSessionStoreActiveFound(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewSessionStore(gw)

	mock.ExpectQuery("SELECT .+ FROM sessions\\s+WHERE ended_at IS NULL").
		WillReturnRows(sessionRows().AddRow(
			"s1", "project-1", time.Now(), nil, "", "", "", "{}", ""))

	session, err := store.Active(context.Background())
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if !session.Active() {
		t.Fatal("session with nil ended_at should be active")
	}
	if session.ProjectID != "project-1" {
		t.Fatalf("project = %q", session.ProjectID)
	}
}

func TestSessionStoreEndIsIdempotent(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewSessionStore(gw)

	// The WHERE clause only matches sessions that have not ended, so a
	// second End is a zero-row no-op rather than an error.
	mock.ExpectExec("UPDATE sessions SET ended_at = .+ AND ended_at IS NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.End(context.Background(), "s1", time.Now()); err != nil {
		t.Fatalf("End() on ended session error = %v", err)
	}
}

func TestSessionStoreLastProjectIDEmpty(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewSessionStore(gw)

	mock.ExpectQuery("SELECT project_id FROM sessions").
		WillReturnError(sql.ErrNoRows)

	projectID, err := store.LastProjectID(context.Background())
	if err != nil {
		t.Fatalf("LastProjectID() error = %v", err)
	}
	if projectID != "" {
		t.Fatalf("project id = %q, want empty", projectID)
	}
}
