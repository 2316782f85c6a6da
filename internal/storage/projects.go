package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

// ProjectStore persists projects.
type ProjectStore struct {
	gw *Gateway
}

// NewProjectStore creates a project store on the gateway.
func NewProjectStore(gw *Gateway) *ProjectStore {
	return &ProjectStore{gw: gw}
}

const projectColumns = `id, name, description, status, git_repo_url, root_directory, metadata, created_at, updated_at`

// Create inserts a new project. A duplicate name fails with Conflict and
// creates no row.
func (s *ProjectStore) Create(ctx context.Context, project *models.Project) error {
	if project == nil || strings.TrimSpace(project.Name) == "" {
		return errs.E(errs.KindInvalidParams, "project name is required")
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	meta, err := marshalMetadata(project.Metadata)
	if err != nil {
		return err
	}

	_, err = s.gw.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		project.ID,
		project.Name,
		project.Description,
		string(project.Status),
		project.GitRepoURL,
		project.RootDirectory,
		meta,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return MapError(err, "create project")
	}
	return nil
}

// Get retrieves a project by ID.
func (s *ProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	if id == "" {
		return nil, errs.E(errs.KindNotFound, "project not found")
	}
	row := s.gw.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// GetByName retrieves a project by its unique name.
func (s *ProjectStore) GetByName(ctx context.Context, name string) (*models.Project, error) {
	row := s.gw.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE name = $1`, name)
	return scanProject(row)
}

// Resolve accepts either a project ID or a project name.
func (s *ProjectStore) Resolve(ctx context.Context, ref string) (*models.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errs.E(errs.KindInvalidParams, "project reference is required")
	}
	if _, err := uuid.Parse(ref); err == nil {
		if project, err := s.Get(ctx, ref); err == nil {
			return project, nil
		}
	}
	project, err := s.GetByName(ctx, ref)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.E(errs.KindNotFound, "project %q not found", ref)
		}
		return nil, err
	}
	return project, nil
}

// List returns all projects ordered by creation time. With stats, each row
// carries its context and session counts.
func (s *ProjectStore) List(ctx context.Context, includeStats bool) ([]*models.Project, error) {
	rows, err := s.gw.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, MapError(err, "list projects")
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "list projects")
	}

	if includeStats {
		for _, project := range projects {
			if err := s.fillStats(ctx, project); err != nil {
				return nil, err
			}
		}
	}
	return projects, nil
}

func (s *ProjectStore) fillStats(ctx context.Context, project *models.Project) error {
	err := s.gw.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM contexts WHERE project_id = $1),
			(SELECT count(*) FROM sessions WHERE project_id = $1)`,
		project.ID,
	).Scan(&project.ContextCount, &project.SessionCount)
	if err != nil {
		return MapError(err, "project stats")
	}
	return nil
}

// AnyActive returns any active project, oldest first so the selection is
// stable, or NotFound when none exist.
func (s *ProjectStore) AnyActive(ctx context.Context) (*models.Project, error) {
	row := s.gw.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE status = $1 ORDER BY created_at ASC LIMIT 1`,
		string(models.ProjectStatusActive))
	project, err := scanProject(row)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.E(errs.KindNotFound, "no active projects")
		}
		return nil, err
	}
	return project, nil
}

// Delete removes a project; children cascade at the schema level.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errs.E(errs.KindNotFound, "project not found")
	}
	res, err := s.gw.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return MapError(err, "delete project")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return MapError(err, "delete project rows affected")
	}
	if rows == 0 {
		return errs.E(errs.KindNotFound, "project %q not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var project models.Project
	var status string
	var metaBytes []byte
	if err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&status,
		&project.GitRepoURL,
		&project.RootDirectory,
		&metaBytes,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		return nil, MapError(err, "scan project")
	}
	project.Status = models.ProjectStatus(status)
	if err := unmarshalMetadata(metaBytes, &project.Metadata); err != nil {
		return nil, err
	}
	return &project, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidParams, err, "marshal metadata")
	}
	return data, nil
}

func unmarshalMetadata(data []byte, out *map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.KindInternal, err, "unmarshal metadata")
	}
	return nil
}
