package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

// SessionStore persists sessions.
type SessionStore struct {
	gw *Gateway
}

// NewSessionStore creates a session store on the gateway.
func NewSessionStore(gw *Gateway) *SessionStore {
	return &SessionStore{gw: gw}
}

const sessionColumns = `id, project_id, started_at, ended_at, title, description, goal, tags, agent_model`

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errs.E(errs.KindInvalidParams, "session is required")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	_, err := s.gw.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		session.ID,
		nullableID(session.ProjectID),
		session.StartedAt,
		session.EndedAt,
		session.Title,
		session.Description,
		session.Goal,
		pq.Array(session.Tags),
		session.AgentModel,
	)
	if err != nil {
		return MapError(err, "create session")
	}
	return nil
}

// Get retrieves a session with its derived metrics.
func (s *SessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	row := s.gw.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if err := s.fillMetrics(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Active returns the most recent session that has not ended, or NotFound.
func (s *SessionStore) Active(ctx context.Context) (*models.Session, error) {
	row := s.gw.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`)
	session, err := scanSession(row)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.E(errs.KindNotFound, "no active session")
		}
		return nil, err
	}
	return session, nil
}

// AssignProject points the session at a project.
func (s *SessionStore) AssignProject(ctx context.Context, sessionID, projectID string) error {
	res, err := s.gw.db.ExecContext(ctx,
		`UPDATE sessions SET project_id = $1 WHERE id = $2`,
		nullableID(projectID), sessionID)
	if err != nil {
		return MapError(err, "assign session project")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return MapError(err, "assign session project rows affected")
	}
	if rows == 0 {
		return errs.E(errs.KindNotFound, "session %q not found", sessionID)
	}
	return nil
}

// End marks the session ended. Ending an already-ended session is a no-op.
func (s *SessionStore) End(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.gw.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = $1 WHERE id = $2 AND ended_at IS NULL`,
		at, sessionID)
	if err != nil {
		return MapError(err, "end session")
	}
	return nil
}

// LastProjectID returns the project of the most recently started session
// that had one, or empty when no session remembers a project.
func (s *SessionStore) LastProjectID(ctx context.Context) (string, error) {
	var projectID string
	err := s.gw.db.QueryRowContext(ctx,
		`SELECT project_id FROM sessions
		 WHERE project_id IS NOT NULL ORDER BY started_at DESC LIMIT 1`,
	).Scan(&projectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", MapError(err, "last session project")
	}
	return projectID, nil
}

func (s *SessionStore) fillMetrics(ctx context.Context, session *models.Session) error {
	err := s.gw.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM contexts WHERE session_id = $1),
			(SELECT count(*) FROM decisions d JOIN sessions se ON d.project_id = se.project_id AND se.id = $1
			 WHERE d.created_at >= se.started_at)`,
		session.ID,
	).Scan(&session.ContextCount, &session.DecisionCount)
	if err != nil {
		return MapError(err, "session metrics")
	}
	end := time.Now().UTC()
	if session.EndedAt != nil {
		end = *session.EndedAt
	}
	session.Duration = end.Sub(session.StartedAt)
	return nil
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	var projectID sql.NullString
	var endedAt sql.NullTime
	var tags []string
	if err := row.Scan(
		&session.ID,
		&projectID,
		&session.StartedAt,
		&endedAt,
		&session.Title,
		&session.Description,
		&session.Goal,
		pq.Array(&tags),
		&session.AgentModel,
	); err != nil {
		return nil, MapError(err, "scan session")
	}
	if projectID.Valid {
		session.ProjectID = projectID.String
	}
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	session.Tags = tags
	return &session, nil
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
