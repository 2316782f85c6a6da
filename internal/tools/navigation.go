package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/registry"
)

func navigationTools(deps *Deps) []registry.Definition {
	prefix := deps.Prefix
	return []registry.Definition{
		{
			Name:        prefix + "_ping",
			Description: "Liveness check; echoes a message.",
			Category:    CategoryNavigation,
			InputSchema: json.RawMessage(schemaEmpty),
			Examples:    []string{prefix + `_ping()`},
			Handler:     deps.ping,
		},
		{
			Name:        prefix + "_status",
			Description: "Report daemon status: version, uptime, health, tool count.",
			Category:    CategoryNavigation,
			InputSchema: json.RawMessage(schemaEmpty),
			Examples:    []string{prefix + `_status()`},
			Handler:     deps.status,
		},
		{
			Name:        prefix + "_help",
			Description: "List every tool grouped by category.",
			Category:    CategoryNavigation,
			InputSchema: json.RawMessage(schemaEmpty),
			Examples:    []string{prefix + `_help()`},
			Handler:     deps.help,
		},
		{
			Name:        prefix + "_explain",
			Description: "Explain one tool: description, schema, category.",
			Category:    CategoryNavigation,
			InputSchema: json.RawMessage(schemaToolName),
			Examples:    []string{prefix + `_explain(toolName="context_search")`},
			Handler:     deps.explain,
		},
		{
			Name:        prefix + "_examples",
			Description: "Show usage examples for one tool.",
			Category:    CategoryNavigation,
			InputSchema: json.RawMessage(schemaToolName),
			Examples:    []string{prefix + `_examples(toolName="context_store")`},
			Handler:     deps.examples,
		},
	}
}

func (d *Deps) ping(ctx context.Context, call registry.Call) (*registry.Result, error) {
	return registry.Textf("pong - %s", time.Now().UTC().Format(time.RFC3339)), nil
}

func (d *Deps) status(ctx context.Context, call registry.Call) (*registry.Result, error) {
	status := map[string]any{
		"version":             d.Version,
		"uptime_seconds":      int(time.Since(d.StartTime).Seconds()),
		"embedder":            d.Embedder.Name(),
		"embedding_dimension": d.Embedder.Dimension(),
	}
	if d.Registry != nil {
		status["tools"] = d.Registry.Len()
	}
	if d.Health != nil {
		status["health"] = d.Health(ctx)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "AIDIS %s\n", d.Version)
	fmt.Fprintf(&b, "  uptime: %s\n", time.Since(d.StartTime).Round(time.Second))
	fmt.Fprintf(&b, "  embedder: %s (%d dims)\n", d.Embedder.Name(), d.Embedder.Dimension())
	if d.Registry != nil {
		fmt.Fprintf(&b, "  tools: %d\n", d.Registry.Len())
	}
	return registry.Text(b.String(), status), nil
}

func (d *Deps) help(ctx context.Context, call registry.Call) (*registry.Result, error) {
	if d.Registry == nil {
		return nil, errs.E(errs.KindInternal, "registry not bound")
	}

	byCategory := map[string][]*registry.Definition{}
	for _, def := range d.Registry.List() {
		byCategory[def.Category] = append(byCategory[def.Category], def)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "%d tools\n", d.Registry.Len())
	for _, category := range categories {
		fmt.Fprintf(&b, "\n%s:\n", category)
		for _, def := range byCategory[category] {
			fmt.Fprintf(&b, "  %s - %s\n", def.Name, def.Description)
		}
	}
	return registry.Text(b.String(), byCategory), nil
}

func (d *Deps) lookupTool(name string) (*registry.Definition, error) {
	if d.Registry == nil {
		return nil, errs.E(errs.KindInternal, "registry not bound")
	}
	def, ok := d.Registry.Get(name)
	if !ok {
		// Accept unprefixed navigation names like "ping".
		if def, ok = d.Registry.Get(d.Prefix + "_" + name); !ok {
			return nil, errs.E(errs.KindNotFound, "unknown tool %q; run %s_help for the catalog", name, d.Prefix)
		}
	}
	return def, nil
}

func (d *Deps) explain(ctx context.Context, call registry.Call) (*registry.Result, error) {
	def, err := d.lookupTool(argString(call.Args, "toolName"))
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n%s\n", def.Name, def.Category, def.Description)
	if len(def.InputSchema) > 0 {
		var pretty map[string]any
		if json.Unmarshal(def.InputSchema, &pretty) == nil {
			data, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Fprintf(&b, "\nInput schema:\n%s\n", data)
		}
	}
	return registry.Text(b.String(), def), nil
}

func (d *Deps) examples(ctx context.Context, call registry.Call) (*registry.Result, error) {
	def, err := d.lookupTool(argString(call.Args, "toolName"))
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Examples for %s:\n", def.Name)
	if len(def.Examples) == 0 {
		fmt.Fprintf(&b, "  (no examples recorded)\n")
	}
	for _, example := range def.Examples {
		fmt.Fprintf(&b, "  %s\n", example)
	}
	return registry.Text(b.String(), def.Examples), nil
}
