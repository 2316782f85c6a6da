package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

// TaskStore persists tasks.
type TaskStore struct {
	gw *Gateway
}

// NewTaskStore creates a task store on the gateway.
func NewTaskStore(gw *Gateway) *TaskStore {
	return &TaskStore{gw: gw}
}

const taskColumns = `id, project_id, title, description, task_type, priority, status,
	assigned_to, created_by, tags, dependencies, metadata,
	created_at, updated_at, started_at, completed_at`

// Create inserts a new task. Dependencies must already exist in the same
// project.
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	if task == nil || strings.TrimSpace(task.Title) == "" {
		return errs.E(errs.KindInvalidParams, "task title is required")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	meta, err := marshalMetadata(task.Metadata)
	if err != nil {
		return err
	}

	return s.gw.Tx(ctx, func(tx *sql.Tx) error {
		if len(task.Dependencies) > 0 {
			var count int
			if err := tx.QueryRowContext(ctx,
				`SELECT count(*) FROM tasks WHERE project_id = $1 AND id = ANY($2)`,
				task.ProjectID, pq.Array(task.Dependencies),
			).Scan(&count); err != nil {
				return MapError(err, "check task dependencies")
			}
			if count != len(task.Dependencies) {
				return errs.E(errs.KindInvalidParams,
					"dependencies must reference tasks in the same project")
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (`+taskColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			task.ID,
			task.ProjectID,
			task.Title,
			task.Description,
			task.Type,
			string(task.Priority),
			string(task.Status),
			task.AssignedTo,
			task.CreatedBy,
			pq.Array(task.Tags),
			pq.Array(task.Dependencies),
			meta,
			task.CreatedAt,
			task.UpdatedAt,
			task.StartedAt,
			task.CompletedAt,
		)
		if err != nil {
			return MapError(err, "create task")
		}
		return nil
	})
}

// Get retrieves a task by ID, optionally pinned to a project.
func (s *TaskStore) Get(ctx context.Context, taskID, projectID string) (*models.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	args := []any{taskID}
	if projectID != "" {
		stmt += ` AND project_id = $2`
		args = append(args, projectID)
	}
	row := s.gw.db.QueryRowContext(ctx, stmt, args...)
	task, err := scanTask(row)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.E(errs.KindNotFound, "task %q not found", taskID)
		}
		return nil, err
	}
	return task, nil
}

// TaskFilter restricts a task listing.
type TaskFilter struct {
	ProjectID string
	Statuses  []models.TaskStatus
	Priority  models.TaskPriority
	Assignee  string

	// Tags matches tasks carrying ANY of the given tags.
	Tags []string

	// Phase matches tasks tagged "phase-<Phase>".
	Phase string

	Type string
}

// List returns the project's tasks matching the filter, newest first.
func (s *TaskStore) List(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	args := []any{filter.ProjectID}
	where := []string{"project_id = $1"}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, `status = ANY($`+strconv.Itoa(len(args))+`)`)
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		where = append(where, `priority = $`+strconv.Itoa(len(args)))
	}
	if filter.Assignee != "" {
		args = append(args, filter.Assignee)
		where = append(where, `assigned_to = $`+strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, `task_type = $`+strconv.Itoa(len(args)))
	}
	tags := filter.Tags
	if filter.Phase != "" {
		tags = append(append([]string{}, tags...), "phase-"+filter.Phase)
	}
	if len(tags) > 0 {
		args = append(args, pq.Array(tags))
		where = append(where, `tags && $`+strconv.Itoa(len(args)))
	}

	stmt := `SELECT ` + taskColumns + ` FROM tasks
		 WHERE ` + strings.Join(where, " AND ") + `
		 ORDER BY created_at DESC`

	rows, err := s.gw.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, MapError(err, "list tasks")
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "list tasks")
	}
	return tasks, nil
}

// TaskUpdate describes a mutation applied by Update and BulkUpdate.
type TaskUpdate struct {
	Status     models.TaskStatus
	AssignedTo *string
	Metadata   map[string]any
}

// Update applies a single task mutation, maintaining the status timestamp
// invariants: started_at is set on the first move to in_progress,
// completed_at is set iff the status is completed.
func (s *TaskStore) Update(ctx context.Context, taskID, projectID string, update TaskUpdate) (*models.Task, error) {
	var updated *models.Task
	err := s.gw.Tx(ctx, func(tx *sql.Tx) error {
		task, err := applyTaskUpdate(ctx, tx, taskID, projectID, update)
		if err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// BulkUpdate applies the same mutation to every listed task atomically:
// if any task is missing or fails validation the whole transaction rolls
// back and the result reports zero updates.
func (s *TaskStore) BulkUpdate(ctx context.Context, taskIDs []string, projectID string, update TaskUpdate) (*models.BulkUpdateResult, error) {
	result := &models.BulkUpdateResult{
		TotalRequested: len(taskIDs),
		UpdatedTaskIDs: []string{},
	}

	err := s.gw.Tx(ctx, func(tx *sql.Tx) error {
		for _, taskID := range taskIDs {
			if _, err := applyTaskUpdate(ctx, tx, taskID, projectID, update); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		result.Failed = result.TotalRequested
		return result, err
	}

	result.SuccessfullyUpdated = len(taskIDs)
	result.UpdatedTaskIDs = append(result.UpdatedTaskIDs, taskIDs...)
	return result, nil
}

func applyTaskUpdate(ctx context.Context, tx *sql.Tx, taskID, projectID string, update TaskUpdate) (*models.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	args := []any{taskID}
	if projectID != "" {
		stmt += ` AND project_id = $2`
		args = append(args, projectID)
	}
	stmt += ` FOR UPDATE`

	task, err := scanTask(tx.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.E(errs.KindNotFound, "task %q not found", taskID)
		}
		return nil, err
	}

	now := time.Now().UTC()
	if update.Status != "" {
		if !models.ValidTaskStatus(update.Status) {
			return nil, errs.E(errs.KindInvalidParams, "invalid task status %q", update.Status)
		}
		task.Status = update.Status
		switch update.Status {
		case models.TaskStatusInProgress:
			if task.StartedAt == nil {
				task.StartedAt = &now
			}
			task.CompletedAt = nil
		case models.TaskStatusCompleted:
			if task.CompletedAt == nil {
				task.CompletedAt = &now
			}
		default:
			task.CompletedAt = nil
		}
	}
	if update.AssignedTo != nil {
		task.AssignedTo = *update.AssignedTo
	}
	if update.Metadata != nil {
		if task.Metadata == nil {
			task.Metadata = map[string]any{}
		}
		for k, v := range update.Metadata {
			task.Metadata[k] = v
		}
	}
	task.UpdatedAt = now

	meta, err := marshalMetadata(task.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET status = $1, assigned_to = $2, metadata = $3,
			updated_at = $4, started_at = $5, completed_at = $6
		 WHERE id = $7`,
		string(task.Status),
		task.AssignedTo,
		meta,
		task.UpdatedAt,
		task.StartedAt,
		task.CompletedAt,
		task.ID,
	)
	if err != nil {
		return nil, MapError(err, "update task")
	}
	return task, nil
}

// Delete removes a task within a project.
func (s *TaskStore) Delete(ctx context.Context, taskID, projectID string) error {
	res, err := s.gw.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND project_id = $2`,
		taskID, projectID)
	if err != nil {
		return MapError(err, "delete task")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return MapError(err, "delete task rows affected")
	}
	if rows == 0 {
		return errs.E(errs.KindNotFound, "task %q not found", taskID)
	}
	return nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var priority, status string
	var tags, dependencies []string
	var metaBytes []byte
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Type,
		&priority,
		&status,
		&task.AssignedTo,
		&task.CreatedBy,
		pq.Array(&tags),
		pq.Array(&dependencies),
		&metaBytes,
		&task.CreatedAt,
		&task.UpdatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return nil, MapError(err, "scan task")
	}

	task.Priority = models.TaskPriority(priority)
	task.Status = models.TaskStatus(status)
	task.Tags = tags
	task.Dependencies = dependencies
	if startedAt.Valid {
		t := startedAt.Time
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return &task, unmarshalMetadata(metaBytes, &task.Metadata)
}
