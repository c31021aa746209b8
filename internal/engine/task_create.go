package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
)

// SubtaskInput describes one subtask in a create or full-replacement
// update. ID is empty for new subtasks; in a replacement set, an ID that
// matches an existing subtask marks it as kept/updated.
type SubtaskInput struct {
	ID       string
	Label    string
	Status   string
	Position float64
}

// CreateTaskInput is the input to CreateTask.
type CreateTaskInput struct {
	ProjectID   string
	Name        string
	Description string
	AssigneeID  string
	Status      string // defaults to "todo"
	Priority    string
	DueDate     int64
	Subtasks    []SubtaskInput
}

// CreateTask inserts a task with its initial subtask set and updates the
// owning project's counters.
//
// A task must have at least one subtask at all times; an empty subtask
// set fails validation before any write. Initial subtask statuses are
// always normalized to "todo" regardless of the input, so a new task
// starts at progress 0.
//
// Emits one "Created Task" activity, one "Created Subtask" per subtask,
// and one "Assigned to Task" activity (attributed to the assignee) when
// an assignee is supplied.
func (e *Engine) CreateTask(ctx context.Context, input CreateTaskInput) (string, error) {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}

	if len(input.Subtasks) == 0 {
		return "", fault.Validation("a task requires at least one subtask")
	}
	if input.Name == "" {
		return "", fault.Validation("a task requires a name")
	}

	status := input.Status
	if status == "" {
		status = entity.StatusTodo
	}
	if !entity.ValidTaskStatus(status) {
		return "", fault.Validation(fmt.Sprintf("invalid task status %q", status))
	}

	project, err := e.getProject(ctx, input.ProjectID)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	task := entity.Task{
		ProjectID:   input.ProjectID,
		Name:        input.Name,
		Description: input.Description,
		AssigneeID:  input.AssigneeID,
		Status:      status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		Progress:    0,
		CreatedBy:   actor,
	}
	if status == entity.StatusCompleted {
		task.CompletedAt = e.now()
		task.CompletedBy = actor
	}

	taskFields, err := entity.Fields(&task)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	taskID, err := e.store.Insert(ctx, entity.CollTasks, taskFields)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	for i, in := range input.Subtasks {
		if _, err := e.insertSubtask(ctx, actor, taskID, task.Name, in, i); err != nil {
			return "", err
		}
	}

	completedTasks := project.CompletedTasks
	if status == entity.StatusCompleted {
		completedTasks++
	}
	if err := e.patchProjectCounters(ctx, project.ID, project.TotalTasks+1, completedTasks); err != nil {
		return "", fmt.Errorf("create task: update project counters: %w", err)
	}

	if _, err := e.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCreatedTask,
		TargetID:    taskID,
		TargetType:  "task",
		Description: fmt.Sprintf("Created task %q in project %q", task.Name, project.Name),
		Metadata:    map[string]any{"projectId": project.ID},
	}); err != nil {
		return "", err
	}

	if input.AssigneeID != "" {
		if err := e.logAssigned(ctx, input.AssigneeID, taskID, task.Name); err != nil {
			return "", err
		}
	}

	slog.Info("task created",
		"task_id", taskID,
		"project_id", project.ID,
		"subtasks", len(input.Subtasks),
		"actor", actor,
	)

	return taskID, nil
}

// insertSubtask inserts one subtask with status normalized to "todo" and
// logs its creation. Position defaults to the 1-based index when unset.
func (e *Engine) insertSubtask(ctx context.Context, actor, taskID, taskName string, in SubtaskInput, index int) (string, error) {
	position := in.Position
	if position == 0 {
		position = float64(index + 1)
	}

	subtask := entity.Subtask{
		TaskID:    taskID,
		Label:     in.Label,
		Status:    entity.StatusTodo,
		Position:  position,
		CreatedAt: e.now(),
		CreatedBy: actor,
	}
	fields, err := entity.Fields(&subtask)
	if err != nil {
		return "", fmt.Errorf("create subtask: %w", err)
	}
	id, err := e.store.Insert(ctx, entity.CollSubtasks, fields)
	if err != nil {
		return "", fmt.Errorf("create subtask: %w", err)
	}

	if _, err := e.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCreatedSubtask,
		TargetID:    id,
		TargetType:  "subtask",
		Description: fmt.Sprintf("Created subtask %q on task %q", in.Label, taskName),
		Metadata:    map[string]any{"taskId": taskID},
	}); err != nil {
		return "", err
	}

	return id, nil
}

// logAssigned appends the "Assigned to Task" activity, attributed to the
// assignee rather than the caller so it shows up in the assignee's feed.
func (e *Engine) logAssigned(ctx context.Context, assigneeID, taskID, taskName string) error {
	_, err := e.activity.Append(ctx, activity.Entry{
		UserID:      assigneeID,
		ActionType:  activity.ActionAssignedToTask,
		TargetID:    taskID,
		TargetType:  "task",
		Description: fmt.Sprintf("Assigned to task %q", taskName),
	})
	return err
}

// logUnassigned appends the "Removed from Task" activity, attributed to
// the previous assignee.
func (e *Engine) logUnassigned(ctx context.Context, assigneeID, taskID, taskName string) error {
	_, err := e.activity.Append(ctx, activity.Entry{
		UserID:      assigneeID,
		ActionType:  activity.ActionRemovedFromTask,
		TargetID:    taskID,
		TargetType:  "task",
		Description: fmt.Sprintf("Removed from task %q", taskName),
	})
	return err
}
