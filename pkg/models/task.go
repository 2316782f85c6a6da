package models

import (
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskPriority grades task urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// ValidTaskPriority reports whether p is a known priority.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of agent work scoped to a project.
//
// Invariants: CompletedAt is set iff Status is completed; Dependencies
// resolve to tasks in the same project.
type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Type is a free-form task category (e.g. "feature", "bugfix").
	Type string `json:"type,omitempty"`

	Priority TaskPriority `json:"priority"`
	Status   TaskStatus   `json:"status"`

	// AssignedTo is an opaque assignee identifier.
	AssignedTo string `json:"assigned_to,omitempty"`

	// CreatedBy is an opaque creator identifier.
	CreatedBy string `json:"created_by,omitempty"`

	Tags []string `json:"tags,omitempty"`

	// Dependencies lists task IDs in the same project that this task
	// depends on.
	Dependencies []string `json:"dependencies,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BulkUpdateResult reports the outcome of a task_bulk_update call. The
// update is all-or-nothing: SuccessfullyUpdated is either the full request
// count or zero.
type BulkUpdateResult struct {
	TotalRequested      int      `json:"totalRequested"`
	SuccessfullyUpdated int      `json:"successfullyUpdated"`
	Failed              int      `json:"failed"`
	UpdatedTaskIDs      []string `json:"updatedTaskIds"`
}

// TaskGroupSummary is one group in a task_progress_summary response.
type TaskGroupSummary struct {
	Group             string             `json:"group"`
	Total             int                `json:"total"`
	ByStatus          map[TaskStatus]int `json:"by_status"`
	CompletionPercent float64            `json:"completion_percent"`
}

// TaskProgressSummary is the full task_progress_summary response.
type TaskProgressSummary struct {
	GroupBy           string             `json:"group_by"`
	Groups            []TaskGroupSummary `json:"groups"`
	TotalTasks        int                `json:"total_tasks"`
	CompletedTasks    int                `json:"completed_tasks"`
	CompletionPercent float64            `json:"completion_percent"`
}
