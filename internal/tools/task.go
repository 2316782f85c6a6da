package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/registry"
	"github.com/haasonsaas/aidis/internal/storage"
	"github.com/haasonsaas/aidis/pkg/models"
)

func taskTools(deps *Deps) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "task_create",
			Description: "Create a task in the current project.",
			Category:    CategoryTask,
			InputSchema: json.RawMessage(schemaTaskCreate),
			Examples:    []string{`task_create(title="Wire refresh tokens", priority="high", tags=["auth"])`},
			Handler:     deps.taskCreate,
		},
		{
			Name:        "task_list",
			Description: "List tasks with status, priority, tag and phase filters.",
			Category:    CategoryTask,
			InputSchema: json.RawMessage(schemaTaskList),
			Examples:    []string{`task_list(statuses=["todo","in_progress"], phase="2")`},
			Handler:     deps.taskList,
		},
		{
			Name:        "task_update",
			Description: "Update one task's status, assignee or metadata.",
			Category:    CategoryTask,
			InputSchema: json.RawMessage(schemaTaskUpdate),
			Examples:    []string{`task_update(taskId="...", status="completed")`},
			Handler:     deps.taskUpdate,
		},
		{
			Name:        "task_details",
			Description: "Show one task in full.",
			Category:    CategoryTask,
			InputSchema: json.RawMessage(schemaTaskDetails),
			Examples:    []string{`task_details(taskId="...")`},
			Handler:     deps.taskDetails,
		},
		{
			Name:        "task_bulk_update",
			Description: "Apply one update to many tasks atomically: all succeed or none do.",
			Category:    CategoryTask,
			InputSchema: json.RawMessage(schemaTaskBulkUpdate),
			Examples:    []string{`task_bulk_update(task_ids=["...","..."], status="completed")`},
			Handler:     deps.taskBulkUpdate,
		},
		{
			Name:        "task_progress_summary",
			Description: "Group tasks and report per-group completion percentages.",
			Category:    CategoryTask,
			InputSchema: json.RawMessage(schemaTaskProgressSummary),
			Examples:    []string{`task_progress_summary(groupBy="phase")`},
			Handler:     deps.taskProgressSummary,
		},
		{
			Name:        "task_delete",
			Description: "Delete a task.",
			Category:    CategoryTask,
			InputSchema: json.RawMessage(schemaTaskDelete),
			Examples:    []string{`task_delete(taskId="...")`},
			Handler:     deps.taskDelete,
		},
	}
}

func (d *Deps) taskCreate(ctx context.Context, call registry.Call) (*registry.Result, error) {
	title := strings.TrimSpace(argString(call.Args, "title"))
	if title == "" {
		return nil, errs.E(errs.KindInvalidParams, "task title must not be empty")
	}

	priority := models.TaskPriority(argString(call.Args, "priority"))
	if priority != "" && !models.ValidTaskPriority(priority) {
		return nil, errs.E(errs.KindInvalidParams, "unknown priority %q", priority)
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ProjectID:    projectID,
		Title:        title,
		Description:  argString(call.Args, "description"),
		Type:         argString(call.Args, "type"),
		Priority:     priority,
		AssignedTo:   argString(call.Args, "assignedTo"),
		CreatedBy:    argString(call.Args, "createdBy"),
		Tags:         trimmedTags(argStringSlice(call.Args, "tags")),
		Dependencies: argStringSlice(call.Args, "dependencies"),
		Metadata:     argMap(call.Args, "metadata"),
	}
	if err := d.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	d.Logger.Info(ctx, "created task", "task_id", task.ID, "title", title)
	return registry.Text(fmt.Sprintf("Created task %q (%s)", title, task.ID), task), nil
}

func (d *Deps) taskList(ctx context.Context, call registry.Call) (*registry.Result, error) {
	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	var statuses []models.TaskStatus
	for _, s := range argStringSlice(call.Args, "statuses") {
		status := models.TaskStatus(s)
		if !models.ValidTaskStatus(status) {
			return nil, errs.E(errs.KindInvalidParams, "unknown task status %q", s)
		}
		statuses = append(statuses, status)
	}
	if s := argString(call.Args, "status"); s != "" {
		status := models.TaskStatus(s)
		if !models.ValidTaskStatus(status) {
			return nil, errs.E(errs.KindInvalidParams, "unknown task status %q", s)
		}
		statuses = append(statuses, status)
	}

	filter := storage.TaskFilter{
		ProjectID: projectID,
		Statuses:  statuses,
		Priority:  models.TaskPriority(argString(call.Args, "priority")),
		Assignee:  argString(call.Args, "assignedTo"),
		Tags:      argStringSlice(call.Args, "tags"),
		Phase:     argString(call.Args, "phase"),
		Type:      argString(call.Args, "type"),
	}

	tasks, err := d.Tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d tasks\n", len(tasks))
	for i, task := range tasks {
		fmt.Fprintf(&b, "%d. [%s/%s] %s", i+1, task.Status, task.Priority, task.Title)
		if task.AssignedTo != "" {
			fmt.Fprintf(&b, " → %s", task.AssignedTo)
		}
		b.WriteByte('\n')
	}
	return registry.Text(b.String(), tasks), nil
}

func (d *Deps) taskUpdate(ctx context.Context, call registry.Call) (*registry.Result, error) {
	taskID := argString(call.Args, "taskId")
	status := models.TaskStatus(argString(call.Args, "status"))
	if !models.ValidTaskStatus(status) {
		return nil, errs.E(errs.KindInvalidParams, "unknown task status %q", status)
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	update := storage.TaskUpdate{
		Status:   status,
		Metadata: argMap(call.Args, "metadata"),
	}
	if raw, ok := call.Args["assignedTo"].(string); ok {
		update.AssignedTo = &raw
	}

	task, err := d.Tasks.Update(ctx, taskID, projectID, update)
	if err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("Task %q is now %s", task.Title, task.Status), task), nil
}

func (d *Deps) taskDetails(ctx context.Context, call registry.Call) (*registry.Result, error) {
	taskID := argString(call.Args, "taskId")

	projectID := ""
	if ref := argString(call.Args, "projectId"); ref != "" {
		project, err := d.Projects.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		projectID = project.ID
	}

	task, err := d.Tasks.Get(ctx, taskID, projectID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task %q (%s)\n", task.Title, task.ID)
	fmt.Fprintf(&b, "  status: %s, priority: %s\n", task.Status, task.Priority)
	if task.Description != "" {
		fmt.Fprintf(&b, "  description: %s\n", task.Description)
	}
	if task.AssignedTo != "" {
		fmt.Fprintf(&b, "  assigned to: %s\n", task.AssignedTo)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, "  tags: %s\n", strings.Join(task.Tags, ", "))
	}
	if len(task.Dependencies) > 0 {
		fmt.Fprintf(&b, "  depends on: %s\n", strings.Join(task.Dependencies, ", "))
	}
	fmt.Fprintf(&b, "  created: %s\n", task.CreatedAt.Format("2006-01-02 15:04"))
	if task.CompletedAt != nil {
		fmt.Fprintf(&b, "  completed: %s\n", task.CompletedAt.Format("2006-01-02 15:04"))
	}
	return registry.Text(b.String(), task), nil
}

func (d *Deps) taskBulkUpdate(ctx context.Context, call registry.Call) (*registry.Result, error) {
	taskIDs := argStringSlice(call.Args, "task_ids")
	if len(taskIDs) == 0 {
		return nil, errs.E(errs.KindInvalidParams, "task_ids must not be empty")
	}

	status := models.TaskStatus(argString(call.Args, "status"))
	if !models.ValidTaskStatus(status) {
		return nil, errs.E(errs.KindInvalidParams, "unknown task status %q", status)
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	update := storage.TaskUpdate{
		Status:   status,
		Metadata: argMap(call.Args, "metadata"),
	}
	if raw, ok := call.Args["assignedTo"].(string); ok {
		update.AssignedTo = &raw
	}

	result, err := d.Tasks.BulkUpdate(ctx, taskIDs, projectID, update)
	if err != nil {
		// The transaction rolled back: report the all-or-nothing outcome
		// instead of surfacing a bare error.
		d.Logger.Warn(ctx, "bulk update rolled back", "error", err, "requested", len(taskIDs))
		text := fmt.Sprintf("Bulk update failed, no tasks changed: %v", err)
		return registry.Text(text, result), nil
	}

	text := fmt.Sprintf("Updated %d of %d tasks to %s",
		result.SuccessfullyUpdated, result.TotalRequested, status)
	return registry.Text(text, result), nil
}

func (d *Deps) taskProgressSummary(ctx context.Context, call registry.Call) (*registry.Result, error) {
	groupBy := argString(call.Args, "groupBy")
	switch groupBy {
	case "phase", "status", "priority", "type", "assignedTo":
	default:
		return nil, errs.E(errs.KindInvalidParams, "groupBy must be one of phase, status, priority, type, assignedTo")
	}

	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	tasks, err := d.Tasks.List(ctx, storage.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	summary := summarizeTasks(tasks, groupBy)

	var b strings.Builder
	fmt.Fprintf(&b, "Task progress by %s: %d tasks, %.0f%% complete\n",
		groupBy, summary.TotalTasks, summary.CompletionPercent)
	for _, group := range summary.Groups {
		fmt.Fprintf(&b, "  %s: %d tasks, %.0f%% complete\n",
			group.Group, group.Total, group.CompletionPercent)
	}
	return registry.Text(b.String(), summary), nil
}

func summarizeTasks(tasks []*models.Task, groupBy string) *models.TaskProgressSummary {
	groups := map[string]*models.TaskGroupSummary{}
	completed := 0

	for _, task := range tasks {
		for _, key := range groupKeys(task, groupBy) {
			group, ok := groups[key]
			if !ok {
				group = &models.TaskGroupSummary{Group: key, ByStatus: map[models.TaskStatus]int{}}
				groups[key] = group
			}
			group.Total++
			group.ByStatus[task.Status]++
		}
		if task.Status == models.TaskStatusCompleted {
			completed++
		}
	}

	summary := &models.TaskProgressSummary{
		GroupBy:        groupBy,
		TotalTasks:     len(tasks),
		CompletedTasks: completed,
	}
	if len(tasks) > 0 {
		summary.CompletionPercent = float64(completed) / float64(len(tasks)) * 100
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		group := groups[name]
		if group.Total > 0 {
			group.CompletionPercent = float64(group.ByStatus[models.TaskStatusCompleted]) / float64(group.Total) * 100
		}
		summary.Groups = append(summary.Groups, *group)
	}
	return summary
}

// groupKeys maps one task to its group memberships. Phase grouping reads
// "phase-<n>" tags; a task may carry several.
func groupKeys(task *models.Task, groupBy string) []string {
	switch groupBy {
	case "status":
		return []string{string(task.Status)}
	case "priority":
		return []string{string(task.Priority)}
	case "type":
		if task.Type == "" {
			return []string{"(none)"}
		}
		return []string{task.Type}
	case "assignedTo":
		if task.AssignedTo == "" {
			return []string{"(unassigned)"}
		}
		return []string{task.AssignedTo}
	case "phase":
		var phases []string
		for _, tag := range task.Tags {
			if strings.HasPrefix(tag, "phase-") {
				phases = append(phases, strings.TrimPrefix(tag, "phase-"))
			}
		}
		if len(phases) == 0 {
			return []string{"(no phase)"}
		}
		return phases
	}
	return []string{"(unknown)"}
}

func (d *Deps) taskDelete(ctx context.Context, call registry.Call) (*registry.Result, error) {
	taskID := argString(call.Args, "taskId")
	projectID, err := d.resolveProjectID(ctx, call, argString(call.Args, "projectId"))
	if err != nil {
		return nil, err
	}
	if err := d.Tasks.Delete(ctx, taskID, projectID); err != nil {
		return nil, err
	}
	return registry.Textf("Deleted task %s", taskID), nil
}
