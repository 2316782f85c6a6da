// Package models provides domain types for the AIDIS development
// intelligence daemon.
package models

import (
	"time"
)

// ProjectStatus identifies the lifecycle state of a project.
type ProjectStatus string

const (
	// ProjectStatusActive indicates the project accepts new work.
	ProjectStatusActive ProjectStatus = "active"

	// ProjectStatusArchived indicates the project is read-only history.
	ProjectStatusArchived ProjectStatus = "archived"
)

// Project is a named isolated workspace. Every context, decision, task and
// session belongs to exactly one project.
type Project struct {
	// ID is the opaque project identifier (UUID).
	ID string `json:"id"`

	// Name is the human name, unique across all projects.
	Name string `json:"name"`

	// Description provides optional free-form detail.
	Description string `json:"description,omitempty"`

	// Status is active or archived.
	Status ProjectStatus `json:"status"`

	// GitRepoURL is the optional git repository URL.
	GitRepoURL string `json:"git_repo_url,omitempty"`

	// RootDirectory is the optional local root directory.
	RootDirectory string `json:"root_directory,omitempty"`

	// Metadata holds arbitrary project metadata.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ContextCount and SessionCount are derived stats, populated only when
	// a listing requests them.
	ContextCount int `json:"context_count,omitempty"`
	SessionCount int `json:"session_count,omitempty"`
}
