package models

import (
	"time"
)

// Session is a bounded period of activity by one caller. At most one session
// per caller is active (EndedAt nil) at any time.
type Session struct {
	// ID is the session identifier (UUID).
	ID string `json:"id"`

	// ProjectID is the owning project. Nullable at creation; a session may
	// predate its project assignment.
	ProjectID string `json:"project_id,omitempty"`

	// StartedAt is when the session began.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the session ended; nil while active.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Title, Description and Goal are optional annotations.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Goal        string `json:"goal,omitempty"`

	// Tags label the session.
	Tags []string `json:"tags,omitempty"`

	// AgentModel identifies the AI model driving the session.
	AgentModel string `json:"agent_model,omitempty"`

	// Derived metrics, populated on read.
	ContextCount  int           `json:"context_count,omitempty"`
	DecisionCount int           `json:"decision_count,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
}

// Active reports whether the session has not ended.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}
