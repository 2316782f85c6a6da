package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

func contextColumnsList() []string {
	return []string{
		"id", "project_id", "session_id", "context_type", "content",
		"tags", "relevance_score", "metadata", "created_at",
	}
}

func TestContextStoreCreateWritesEmbeddingInTx(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewContextStore(gw)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contexts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.Context{
		ProjectID:      "project-1",
		Type:           models.ContextTypeCode,
		Content:        "implemented refresh flow",
		RelevanceScore: 5,
		Embedding:      make([]float32, models.EmbeddingDimension),
	}
	if err := store.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" {
		t.Fatal("Create() should assign an id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestContextStoreSearchFiltersBySimilarityFloor(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewContextStore(gw)

	now := time.Now()
	rows := sqlmock.NewRows(append(contextColumnsList(), "similarity")).
		AddRow("c1", "project-1", nil, "code", "JWT refresh flow", "{}", 5.0, []byte("{}"), now, 0.91).
		AddRow("c2", "project-1", nil, "code", "unrelated note", "{}", 5.0, []byte("{}"), now, 0.35)

	mock.ExpectQuery("SELECT .+ 1 - \\(embedding <=> \\$1\\) AS similarity").
		WillReturnRows(rows)

	query := make([]float32, models.EmbeddingDimension)
	results, err := store.Search(context.Background(), query, SearchFilter{
		ProjectID:     "project-1",
		MinSimilarity: 0.5,
	}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// The 0.35 row falls below the similarity floor.
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].ID != "c1" || results[0].Similarity != 0.91 {
		t.Fatalf("result = %+v", results[0])
	}
	if results[0].ProjectID != "project-1" {
		t.Fatal("project isolation violated")
	}
}

func TestContextStoreGetRecent(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewContextStore(gw)

	now := time.Now()
	rows := sqlmock.NewRows(contextColumnsList()).
		AddRow("c2", "project-1", nil, "planning", "newest", "{}", 5.0, []byte("{}"), now).
		AddRow("c1", "project-1", nil, "code", "older", "{}", 5.0, []byte("{}"), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT .+ FROM contexts .+ ORDER BY created_at DESC").
		WithArgs("project-1", 5).
		WillReturnRows(rows)

	contexts, err := store.GetRecent(context.Background(), "project-1", 5)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(contexts) != 2 || contexts[0].Content != "newest" {
		t.Fatalf("contexts = %+v", contexts)
	}
}

func TestContextStoreDeleteRequiresProjectMatch(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewContextStore(gw)

	mock.ExpectExec("DELETE FROM contexts WHERE id = \\$1 AND project_id = \\$2").
		WithArgs("ctx-1", "wrong-project").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "ctx-1", "wrong-project")
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("error kind = %q, want NotFound", errs.KindOf(err))
	}
}

func TestContextStoreStats(t *testing.T) {
	gw, mock := setupMockGateway(t)
	store := NewContextStore(gw)

	mock.ExpectQuery("SELECT count\\(\\*\\),").
		WithArgs("project-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "count", "count"}).AddRow(10, 9, 3))
	mock.ExpectQuery("SELECT context_type, count\\(\\*\\) FROM contexts").
		WithArgs("project-1").
		WillReturnRows(sqlmock.NewRows([]string{"context_type", "count"}).
			AddRow("code", 6).
			AddRow("decision", 4))

	stats, err := store.Stats(context.Background(), "project-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalContexts != 10 || stats.WithEmbeddings != 9 || stats.Recent24h != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByType[models.ContextTypeCode] != 6 {
		t.Fatalf("by type = %v", stats.ByType)
	}
}
