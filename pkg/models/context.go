package models

import (
	"time"
)

// ContextType identifies the kind of stored development information.
type ContextType string

const (
	ContextTypeCode        ContextType = "code"
	ContextTypeDecision    ContextType = "decision"
	ContextTypeError       ContextType = "error"
	ContextTypeDiscussion  ContextType = "discussion"
	ContextTypePlanning    ContextType = "planning"
	ContextTypeCompletion  ContextType = "completion"
	ContextTypeMilestone   ContextType = "milestone"
	ContextTypeReflections ContextType = "reflections"
	ContextTypeHandoff     ContextType = "handoff"
)

// ContextTypes lists every valid context type.
var ContextTypes = []ContextType{
	ContextTypeCode,
	ContextTypeDecision,
	ContextTypeError,
	ContextTypeDiscussion,
	ContextTypePlanning,
	ContextTypeCompletion,
	ContextTypeMilestone,
	ContextTypeReflections,
	ContextTypeHandoff,
}

// ValidContextType reports whether t is a member of the closed type set.
func ValidContextType(t ContextType) bool {
	for _, known := range ContextTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Context size limits enforced at store time.
const (
	// MaxContextContentLength is the maximum content length in characters.
	MaxContextContentLength = 10000

	// MaxContextTags is the maximum number of tags per context.
	MaxContextTags = 20

	// MaxContextTagLength is the maximum length of a single tag.
	MaxContextTagLength = 50

	// EmbeddingDimension is the dimension of the context embedding vector.
	EmbeddingDimension = 384
)

// Context is one stored piece of development information, indexed by a
// semantic embedding vector. A context is searchable only once its embedding
// is populated.
type Context struct {
	// ID is the context identifier (UUID).
	ID string `json:"id"`

	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`

	// SessionID is the session the context was stored under, if any.
	SessionID string `json:"session_id,omitempty"`

	// Type is one of the closed context type set.
	Type ContextType `json:"type"`

	// Content is the free-text body, at most MaxContextContentLength chars.
	Content string `json:"content"`

	// Tags label the context, at most MaxContextTags entries.
	Tags []string `json:"tags,omitempty"`

	// RelevanceScore is 0-10, default 5.
	RelevanceScore float64 `json:"relevance_score"`

	// Metadata holds arbitrary context metadata.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Embedding is the 384-dim semantic vector, populated before the row is
	// considered searchable. Omitted from JSON output.
	Embedding []float32 `json:"-"`
}

// ContextSearchResult is a context row returned from semantic search with
// its similarity to the query.
type ContextSearchResult struct {
	Context

	// Similarity is the cosine similarity to the query. The storage search
	// fills it in [0,1]; the context_search tool reports it as a percentage
	// in [0,100].
	Similarity float64 `json:"similarity"`
}

// ContextStats summarizes the contexts of one project.
type ContextStats struct {
	TotalContexts  int                 `json:"total_contexts"`
	WithEmbeddings int                 `json:"with_embeddings"`
	Recent24h      int                 `json:"recent_24h"`
	ByType         map[ContextType]int `json:"by_type"`
}
