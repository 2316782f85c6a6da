package storage

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

// ContextStore persists contexts and serves the vector-similarity search.
type ContextStore struct {
	gw *Gateway
}

// NewContextStore creates a context store on the gateway.
func NewContextStore(gw *Gateway) *ContextStore {
	return &ContextStore{gw: gw}
}

const contextColumns = `id, project_id, session_id, context_type, content, tags, relevance_score, metadata, created_at`

// Create inserts a context with its embedding in one transaction. The row
// is only searchable once the embedding is written, so both land together.
func (s *ContextStore) Create(ctx context.Context, entry *models.Context) error {
	if entry == nil {
		return errs.E(errs.KindInvalidParams, "context is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	meta, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	return s.gw.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO contexts (`+contextColumns+`, embedding)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			entry.ID,
			entry.ProjectID,
			nullableID(entry.SessionID),
			string(entry.Type),
			entry.Content,
			pq.Array(entry.Tags),
			entry.RelevanceScore,
			meta,
			entry.CreatedAt,
			Vector(entry.Embedding),
		)
		if err != nil {
			return MapError(err, "create context")
		}
		return nil
	})
}

// SearchFilter restricts a vector search.
type SearchFilter struct {
	ProjectID string
	Type      models.ContextType
	Tags      []string

	// MinSimilarity is a floor on cosine similarity in [0,1]; rows below
	// it are dropped.
	MinSimilarity float64
}

// Search returns the top-k contexts by cosine similarity to the query
// vector, restricted by the filter. Similarity is returned in [0,1]. Rows
// without an embedding are never returned.
func (s *ContextStore) Search(ctx context.Context, query []float32, filter SearchFilter, k int) ([]*models.ContextSearchResult, error) {
	if k <= 0 {
		k = 10
	}

	args := []any{Vector(query), filter.ProjectID}
	where := `WHERE embedding IS NOT NULL AND project_id = $2`
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where += ` AND context_type = $3`
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		where += ` AND tags && $` + strconv.Itoa(len(args))
	}

	args = append(args, k)
	stmt := `SELECT ` + contextColumns + `, 1 - (embedding <=> $1) AS similarity
		 FROM contexts ` + where + `
		 ORDER BY embedding <=> $1 ASC
		 LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.gw.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, MapError(err, "search contexts")
	}
	defer rows.Close()

	results := []*models.ContextSearchResult{}
	for rows.Next() {
		var result models.ContextSearchResult
		var similarity float64
		if err := scanContextInto(rows, &result.Context, &similarity); err != nil {
			return nil, err
		}
		if similarity < 0 {
			similarity = 0
		}
		if similarity > 1 {
			similarity = 1
		}
		if similarity < filter.MinSimilarity {
			continue
		}
		result.Similarity = similarity
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "search contexts")
	}
	return results, nil
}

// GetRecent returns the newest contexts of a project, newest first.
func (s *ContextStore) GetRecent(ctx context.Context, projectID string, limit int) ([]*models.Context, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.gw.db.QueryContext(ctx,
		`SELECT `+contextColumns+` FROM contexts
		 WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`,
		projectID, limit)
	if err != nil {
		return nil, MapError(err, "recent contexts")
	}
	defer rows.Close()

	contexts := []*models.Context{}
	for rows.Next() {
		var entry models.Context
		if err := scanContextInto(rows, &entry, nil); err != nil {
			return nil, err
		}
		contexts = append(contexts, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "recent contexts")
	}
	return contexts, nil
}

// Stats summarizes a project's contexts.
func (s *ContextStore) Stats(ctx context.Context, projectID string) (*models.ContextStats, error) {
	stats := &models.ContextStats{ByType: map[models.ContextType]int{}}

	err := s.gw.db.QueryRowContext(ctx,
		`SELECT count(*),
			count(embedding),
			count(*) FILTER (WHERE created_at >= now() - interval '24 hours')
		 FROM contexts WHERE project_id = $1`,
		projectID,
	).Scan(&stats.TotalContexts, &stats.WithEmbeddings, &stats.Recent24h)
	if err != nil {
		return nil, MapError(err, "context stats")
	}

	rows, err := s.gw.db.QueryContext(ctx,
		`SELECT context_type, count(*) FROM contexts
		 WHERE project_id = $1 GROUP BY context_type`,
		projectID)
	if err != nil {
		return nil, MapError(err, "context stats by type")
	}
	defer rows.Close()
	for rows.Next() {
		var contextType string
		var count int
		if err := rows.Scan(&contextType, &count); err != nil {
			return nil, MapError(err, "scan context stats")
		}
		stats.ByType[models.ContextType(contextType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "context stats by type")
	}
	return stats, nil
}

// Delete removes a context only when both the ID and project match.
func (s *ContextStore) Delete(ctx context.Context, contextID, projectID string) error {
	res, err := s.gw.db.ExecContext(ctx,
		`DELETE FROM contexts WHERE id = $1 AND project_id = $2`,
		contextID, projectID)
	if err != nil {
		return MapError(err, "delete context")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return MapError(err, "delete context rows affected")
	}
	if rows == 0 {
		return errs.E(errs.KindNotFound, "context %q not found in project", contextID)
	}
	return nil
}

func scanContextInto(row rowScanner, entry *models.Context, similarity *float64) error {
	var sessionID sql.NullString
	var contextType string
	var tags []string
	var metaBytes []byte

	dest := []any{
		&entry.ID,
		&entry.ProjectID,
		&sessionID,
		&contextType,
		&entry.Content,
		pq.Array(&tags),
		&entry.RelevanceScore,
		&metaBytes,
		&entry.CreatedAt,
	}
	if similarity != nil {
		dest = append(dest, similarity)
	}
	if err := row.Scan(dest...); err != nil {
		return MapError(err, "scan context")
	}

	if sessionID.Valid {
		entry.SessionID = sessionID.String
	}
	entry.Type = models.ContextType(contextType)
	entry.Tags = tags
	return unmarshalMetadata(metaBytes, &entry.Metadata)
}
