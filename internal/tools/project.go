package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/registry"
	"github.com/haasonsaas/aidis/pkg/models"
)

func projectTools(deps *Deps) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "project_list",
			Description: "List all projects, optionally with context and session counts.",
			Category:    CategoryProject,
			InputSchema: json.RawMessage(schemaProjectList),
			Examples:    []string{`project_list(includeStats=true)`},
			Handler:     deps.projectList,
		},
		{
			Name:        "project_create",
			Description: "Create a new project. Names are unique across the daemon.",
			Category:    CategoryProject,
			InputSchema: json.RawMessage(schemaProjectCreate),
			Examples:    []string{`project_create(name="alpha", description="Auth service")`},
			Handler:     deps.projectCreate,
		},
		{
			Name:        "project_switch",
			Description: "Switch the current project for this session, with validation and rollback.",
			Category:    CategoryProject,
			InputSchema: json.RawMessage(schemaProjectRef),
			Examples:    []string{`project_switch(project="alpha")`},
			Handler:     deps.projectSwitch,
		},
		{
			Name:        "project_current",
			Description: "Return the current project, selecting one when unset.",
			Category:    CategoryProject,
			InputSchema: json.RawMessage(schemaEmpty),
			Examples:    []string{`project_current()`},
			Handler:     deps.projectCurrent,
		},
		{
			Name:        "project_info",
			Description: "Show one project's details and stats.",
			Category:    CategoryProject,
			InputSchema: json.RawMessage(schemaProjectRef),
			Examples:    []string{`project_info(project="alpha")`},
			Handler:     deps.projectInfo,
		},
		{
			Name:        "project_delete",
			Description: "Delete a project and all its contexts, sessions, decisions and tasks.",
			Category:    CategoryProject,
			InputSchema: json.RawMessage(schemaProjectDelete),
			Examples:    []string{`project_delete(projectId="...")`},
			Handler:     deps.projectDelete,
		},
	}
}

func (d *Deps) projectList(ctx context.Context, call registry.Call) (*registry.Result, error) {
	includeStats := argBool(call.Args, "includeStats")
	projects, err := d.Projects.List(ctx, includeStats)
	if err != nil {
		return nil, err
	}

	current := d.State.CurrentProjectID(call.CallerID)
	var b strings.Builder
	fmt.Fprintf(&b, "%d projects\n", len(projects))
	for _, project := range projects {
		marker := "  "
		if project.ID == current {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%s (%s)", marker, project.Name, project.Status)
		if includeStats {
			fmt.Fprintf(&b, " - %d contexts, %d sessions", project.ContextCount, project.SessionCount)
		}
		b.WriteByte('\n')
	}
	return registry.Text(b.String(), projects), nil
}

func (d *Deps) projectCreate(ctx context.Context, call registry.Call) (*registry.Result, error) {
	name := strings.TrimSpace(argString(call.Args, "name"))
	if name == "" {
		return nil, errs.E(errs.KindInvalidParams, "project name must not be empty")
	}

	project := &models.Project{
		Name:          name,
		Description:   argString(call.Args, "description"),
		GitRepoURL:    argString(call.Args, "gitRepoUrl"),
		RootDirectory: argString(call.Args, "rootDirectory"),
		Metadata:      argMap(call.Args, "metadata"),
	}
	if err := d.Projects.Create(ctx, project); err != nil {
		if errs.Is(err, errs.KindConflict) {
			return nil, errs.E(errs.KindConflict, "project %q already exists", name)
		}
		return nil, err
	}

	d.Logger.Info(ctx, "created project", "project", name, "created_project_id", project.ID)
	return registry.Text(fmt.Sprintf("Created project %q (%s)", name, project.ID), project), nil
}

// switchHint picks a troubleshooting hint for a failed switch by error kind.
func switchHint(err error) string {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return "Run project_list to see available projects."
	case errs.KindPreSwitchValidationFailed:
		return "The target must be an active project; check project_info."
	case errs.KindAtomicSwitchFailed:
		return "The current project is unchanged; retry the switch."
	}
	return ""
}

func (d *Deps) projectSwitch(ctx context.Context, call registry.Call) (*registry.Result, error) {
	ref := argString(call.Args, "project")
	project, err := d.State.SwitchProject(ctx, call.CallerID, ref)
	if err != nil {
		if hint := switchHint(err); hint != "" {
			return nil, errs.Wrap(errs.KindOf(err), err, "%s", hint)
		}
		return nil, err
	}
	return registry.Text(fmt.Sprintf("Switched to project %q (%s)", project.Name, project.ID), project), nil
}

func (d *Deps) projectCurrent(ctx context.Context, call registry.Call) (*registry.Result, error) {
	project, err := d.State.CurrentProject(ctx, call.CallerID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return registry.Textf("No projects exist yet; create one with project_create."), nil
		}
		return nil, err
	}
	return registry.Text(fmt.Sprintf("Current project: %q (%s)", project.Name, project.ID), project), nil
}

func (d *Deps) projectInfo(ctx context.Context, call registry.Call) (*registry.Result, error) {
	project, err := d.Projects.Resolve(ctx, argString(call.Args, "project"))
	if err != nil {
		return nil, err
	}

	// Reuse the stats fill from listing.
	projects, err := d.Projects.List(ctx, true)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == project.ID {
			project = p
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project %q (%s)\n", project.Name, project.ID)
	fmt.Fprintf(&b, "  status: %s\n", project.Status)
	if project.Description != "" {
		fmt.Fprintf(&b, "  description: %s\n", project.Description)
	}
	if project.GitRepoURL != "" {
		fmt.Fprintf(&b, "  git: %s\n", project.GitRepoURL)
	}
	if project.RootDirectory != "" {
		fmt.Fprintf(&b, "  root: %s\n", project.RootDirectory)
	}
	fmt.Fprintf(&b, "  contexts: %d, sessions: %d\n", project.ContextCount, project.SessionCount)
	fmt.Fprintf(&b, "  created: %s\n", project.CreatedAt.Format("2006-01-02 15:04"))
	return registry.Text(b.String(), project), nil
}

func (d *Deps) projectDelete(ctx context.Context, call registry.Call) (*registry.Result, error) {
	projectID := argString(call.Args, "projectId")
	project, err := d.Projects.Resolve(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := d.Projects.Delete(ctx, project.ID); err != nil {
		return nil, err
	}
	d.Logger.Info(ctx, "deleted project", "project", project.Name, "deleted_project_id", project.ID)
	return registry.Textf("Deleted project %q and all its data", project.Name), nil
}
