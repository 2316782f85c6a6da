// Package registry holds the immutable tool catalog: every tool's name,
// description, input schema and handler. The catalog is fixed at startup;
// lookups are O(1) map reads with no locking.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Call is one tool invocation as seen by a handler. Args have already been
// coerced and validated against the tool's input schema.
type Call struct {
	// Tool is the resolved tool name.
	Tool string

	// Args is the validated argument map.
	Args map[string]any

	// CallerID identifies the caller for ambient state lookup.
	CallerID string

	// CorrelationID is the per-request UUID bound at the transport.
	CorrelationID string
}

// TextContent is one text block in a tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the structured result envelope returned by every tool.
type Result struct {
	// Content is the presentation form: one or more text blocks.
	Content []TextContent `json:"content"`

	// Structured carries the machine-readable result; transports pass it
	// through unchanged.
	Structured any `json:"structured,omitempty"`
}

// Text builds a single-block text result with an attached structured form.
func Text(text string, structured any) *Result {
	return &Result{
		Content:    []TextContent{{Type: "text", Text: text}},
		Structured: structured,
	}
}

// Textf builds a single-block text result from a format string.
func Textf(format string, args ...any) *Result {
	return &Result{
		Content: []TextContent{{Type: "text", Text: fmt.Sprintf(format, args...)}},
	}
}

// Handler executes one tool call.
type Handler func(ctx context.Context, call Call) (*Result, error)

// Definition describes one tool in the catalog.
type Definition struct {
	// Name is the unique tool name as exposed to callers.
	Name string

	// Description is the caller-facing summary.
	Description string

	// Category groups the tool for aidis_help.
	Category string

	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema json.RawMessage

	// Examples holds caller-facing usage examples for aidis_examples.
	Examples []string

	// Handler executes the tool.
	Handler Handler
}

// Registry is the immutable tool catalog.
type Registry struct {
	tools map[string]*Definition
	names []string
}

// New builds a registry from definitions. Duplicate or empty names are
// programming errors.
func New(defs []Definition) (*Registry, error) {
	tools := make(map[string]*Definition, len(defs))
	names := make([]string, 0, len(defs))
	for i := range defs {
		def := &defs[i]
		if def.Name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", def.Name)
		}
		if _, ok := tools[def.Name]; ok {
			return nil, fmt.Errorf("duplicate tool %s", def.Name)
		}
		tools[def.Name] = def
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return &Registry{tools: tools, names: names}, nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// Names returns all tool names, sorted.
func (r *Registry) Names() []string {
	return r.names
}

// List returns all definitions in name order.
func (r *Registry) List() []*Definition {
	defs := make([]*Definition, 0, len(r.names))
	for _, name := range r.names {
		defs = append(defs, r.tools[name])
	}
	return defs
}

// Len returns the catalog size.
func (r *Registry) Len() int {
	return len(r.tools)
}
