package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/store"
)

// TaskPatch holds the optional field updates for a task. Nil pointers
// mean "leave unchanged". An AssigneeID pointing at the empty string
// unassigns the task.
type TaskPatch struct {
	Name        *string
	Description *string
	AssigneeID  *string
	Status      *string
	Priority    *string
	DueDate     *int64
}

// UpdateTaskInput is the input to UpdateTask. At most one of Subtasks and
// ToggleSubtaskID is honored; when both are passed, the full replacement
// wins and the toggle is ignored.
//
// Subtasks, when non-nil, is a full replacement of the task's subtask
// set: entries are diffed against the current set by id and classified as
// added, removed, or updated. An empty replacement set fails validation.
//
// ToggleSubtaskID flips one subtask between "todo" and "completed" - the
// binary assignee flow; no intermediate states are reachable this way.
type UpdateTaskInput struct {
	TaskID          string
	Fields          TaskPatch
	Subtasks        []SubtaskInput
	ToggleSubtaskID string
}

// taskUpdateResult carries the project-counter consequence of one task
// update out of the core, so single and bulk callers can apply it with
// their own timing.
type taskUpdateResult struct {
	projectID      string
	completedDelta int
}

// UpdateTask applies a partial task update, optionally replacing or
// toggling subtasks, and cascades any completion edge into the owning
// project's counters.
//
// After subtask changes the task's progress is recomputed over the
// current persisted set. If every subtask is completed the task is
// force-transitioned to "completed"; if the task was completed but the
// ratio is no longer 100% it is force-transitioned to "in_progress" and
// its completion stamps are cleared. Forced transitions overwrite any
// caller-supplied status, though the explicit status is still evaluated
// for completion-edge detection first.
func (e *Engine) UpdateTask(ctx context.Context, input UpdateTaskInput) error {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	res, err := e.updateTaskCore(ctx, actor, input)
	if err != nil {
		return err
	}

	if res.completedDelta != 0 {
		project, err := e.getProject(ctx, res.projectID)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := e.patchProjectCounters(ctx, project.ID, project.TotalTasks, project.CompletedTasks+res.completedDelta); err != nil {
			return fmt.Errorf("update task: update project counters: %w", err)
		}
	}

	return nil
}

// updateTaskCore performs everything except the project-counter patch and
// reports the completion-edge delta. Bulk updates accumulate these deltas
// and apply them once per project at the end of the batch.
func (e *Engine) updateTaskCore(ctx context.Context, actor string, input UpdateTaskInput) (taskUpdateResult, error) {
	var res taskUpdateResult

	task, err := e.getTask(ctx, input.TaskID)
	if err != nil {
		return res, fmt.Errorf("update task: %w", err)
	}
	res.projectID = task.ProjectID

	if _, err := e.getProject(ctx, task.ProjectID); err != nil {
		return res, fmt.Errorf("update task: %w", err)
	}

	// All validation happens before any write.
	if input.Subtasks != nil && len(input.Subtasks) == 0 {
		return res, fault.Validation("subtask replacement set cannot be empty")
	}
	if input.Fields.Status != nil && !entity.ValidTaskStatus(*input.Fields.Status) {
		return res, fault.Validation(fmt.Sprintf("invalid task status %q", *input.Fields.Status))
	}
	for _, in := range input.Subtasks {
		if in.Status != "" && !entity.ValidTaskStatus(in.Status) {
			return res, fault.Validation(fmt.Sprintf("invalid subtask status %q", in.Status))
		}
	}
	if input.ToggleSubtaskID != "" && input.Subtasks == nil {
		subtask, err := e.getSubtask(ctx, input.ToggleSubtaskID)
		if err != nil {
			return res, fmt.Errorf("update task: %w", err)
		}
		if subtask.TaskID != task.ID {
			return res, fault.Validation("subtask does not belong to this task")
		}
	}

	// Completion-edge flags from the explicit status request, evaluated
	// before any auto-transition overwrite.
	isCompleting := input.Fields.Status != nil &&
		*input.Fields.Status == entity.StatusCompleted &&
		task.Status != entity.StatusCompleted
	isUncompleting := input.Fields.Status != nil &&
		*input.Fields.Status != entity.StatusCompleted &&
		task.Status == entity.StatusCompleted

	var changed []string

	subtasksChanged := false
	switch {
	case input.Subtasks != nil:
		if err := e.replaceSubtasks(ctx, actor, task, input.Subtasks); err != nil {
			return res, err
		}
		subtasksChanged = true
		changed = append(changed, "subtasks")
	case input.ToggleSubtaskID != "":
		if err := e.toggleSubtask(ctx, actor, task, input.ToggleSubtaskID); err != nil {
			return res, err
		}
		subtasksChanged = true
		changed = append(changed, "subtasks")
	}

	patch := map[string]any{}
	if input.Fields.Name != nil && *input.Fields.Name != task.Name {
		patch["name"] = *input.Fields.Name
		changed = append(changed, "name")
	}
	if input.Fields.Description != nil && *input.Fields.Description != task.Description {
		patch["description"] = *input.Fields.Description
		changed = append(changed, "description")
	}
	if input.Fields.Priority != nil && *input.Fields.Priority != task.Priority {
		patch["priority"] = *input.Fields.Priority
		changed = append(changed, "priority")
	}
	if input.Fields.DueDate != nil && *input.Fields.DueDate != task.DueDate {
		patch["dueDate"] = *input.Fields.DueDate
		changed = append(changed, "dueDate")
	}

	finalStatus := task.Status
	if input.Fields.Status != nil {
		finalStatus = *input.Fields.Status
	}

	if subtasksChanged {
		subtasks, err := e.listSubtasks(ctx, task.ID)
		if err != nil {
			return res, fmt.Errorf("update task: %w", err)
		}
		completedCount, total := subtaskCounts(subtasks)
		patch["progress"] = entity.Percent(completedCount, total)

		if completedCount == total && total > 0 {
			finalStatus = entity.StatusCompleted
			if task.Status != entity.StatusCompleted {
				isCompleting = true
			}
		} else if task.Status == entity.StatusCompleted {
			finalStatus = entity.StatusInProgress
			isUncompleting = true
		}
	}

	if finalStatus != task.Status {
		patch["status"] = finalStatus
		changed = append(changed, "status")
		if finalStatus == entity.StatusCompleted {
			patch["completedAt"] = e.now()
			patch["completedBy"] = actor
		} else if task.Status == entity.StatusCompleted {
			patch["completedAt"] = store.Undefined
			patch["completedBy"] = store.Undefined
		}
	}

	// Assignee changes emit their own activities, attributed to the
	// affected users so the records land in their feeds.
	if input.Fields.AssigneeID != nil && *input.Fields.AssigneeID != task.AssigneeID {
		if *input.Fields.AssigneeID == "" {
			patch["assigneeId"] = store.Undefined
		} else {
			patch["assigneeId"] = *input.Fields.AssigneeID
		}
		changed = append(changed, "assignee")

		if task.AssigneeID != "" {
			if err := e.logUnassigned(ctx, task.AssigneeID, task.ID, task.Name); err != nil {
				return res, err
			}
		}
		if *input.Fields.AssigneeID != "" {
			if err := e.logAssigned(ctx, *input.Fields.AssigneeID, task.ID, task.Name); err != nil {
				return res, err
			}
		}
	}

	if len(patch) > 0 {
		if err := e.store.Patch(ctx, entity.CollTasks, task.ID, patch); err != nil {
			return res, fmt.Errorf("update task: %w", err)
		}
	}

	description := fmt.Sprintf("Updated task %q", task.Name)
	if len(changed) > 0 {
		description = fmt.Sprintf("Updated task %q (%s)", task.Name, strings.Join(changed, ", "))
	}
	if _, err := e.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionUpdatedTask,
		TargetID:    task.ID,
		TargetType:  "task",
		Description: description,
		Metadata:    map[string]any{"projectId": task.ProjectID, "changed": changed},
	}); err != nil {
		return res, err
	}

	if isCompleting {
		res.completedDelta++
	}
	if isUncompleting {
		res.completedDelta--
	}

	slog.Debug("task updated",
		"task_id", task.ID,
		"project_id", task.ProjectID,
		"changed", changed,
		"completed_delta", res.completedDelta,
		"actor", actor,
	)

	return res, nil
}

// replaceSubtasks applies a full-replacement diff: input entries without
// a known id are added, current subtasks missing from the input are
// removed, and matches with a differing label, status, or position are
// patched. One activity per added/removed/updated subtask.
//
// Unlike task creation, added entries here keep their supplied status -
// a manager pasting in a partially-done checklist keeps its state.
func (e *Engine) replaceSubtasks(ctx context.Context, actor string, task entity.Task, inputs []SubtaskInput) error {
	current, err := e.listSubtasks(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("replace subtasks: %w", err)
	}
	byID := make(map[string]entity.Subtask, len(current))
	for _, st := range current {
		byID[st.ID] = st
	}

	keep := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		existing, known := byID[in.ID]
		if in.ID == "" || !known {
			if err := e.insertReplacementSubtask(ctx, actor, task, in, i); err != nil {
				return err
			}
			continue
		}

		keep[in.ID] = true
		if err := e.patchReplacementSubtask(ctx, actor, task, existing, in); err != nil {
			return err
		}
	}

	for _, st := range current {
		if keep[st.ID] {
			continue
		}
		if _, err := e.activity.Append(ctx, activity.Entry{
			UserID:      actor,
			ActionType:  activity.ActionSubtaskDeleted,
			TargetID:    st.ID,
			TargetType:  "subtask",
			Description: fmt.Sprintf("Deleted subtask %q from task %q", st.Label, task.Name),
			Metadata:    map[string]any{"taskId": task.ID},
		}); err != nil {
			return err
		}
		if err := e.store.Delete(ctx, entity.CollSubtasks, st.ID); err != nil {
			return fmt.Errorf("replace subtasks: %w", err)
		}
	}

	return nil
}

// insertReplacementSubtask adds one subtask from a replacement set,
// honoring its supplied status.
func (e *Engine) insertReplacementSubtask(ctx context.Context, actor string, task entity.Task, in SubtaskInput, index int) error {
	status := in.Status
	if status == "" {
		status = entity.StatusTodo
	}
	position := in.Position
	if position == 0 {
		position = float64(index + 1)
	}

	subtask := entity.Subtask{
		TaskID:    task.ID,
		Label:     in.Label,
		Status:    status,
		Position:  position,
		CreatedAt: e.now(),
		CreatedBy: actor,
	}
	if status == entity.StatusCompleted {
		subtask.CompletedAt = e.now()
		subtask.CompletedBy = actor
	}

	fields, err := entity.Fields(&subtask)
	if err != nil {
		return fmt.Errorf("replace subtasks: %w", err)
	}
	id, err := e.store.Insert(ctx, entity.CollSubtasks, fields)
	if err != nil {
		return fmt.Errorf("replace subtasks: %w", err)
	}

	_, err = e.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionCreatedSubtask,
		TargetID:    id,
		TargetType:  "subtask",
		Description: fmt.Sprintf("Created subtask %q on task %q", in.Label, task.Name),
		Metadata:    map[string]any{"taskId": task.ID},
	})
	return err
}

// patchReplacementSubtask updates a kept subtask when its label, status,
// or position differs from the replacement entry.
func (e *Engine) patchReplacementSubtask(ctx context.Context, actor string, task entity.Task, existing entity.Subtask, in SubtaskInput) error {
	patch := map[string]any{}
	if in.Label != existing.Label {
		patch["label"] = in.Label
	}
	if in.Position != 0 && in.Position != existing.Position {
		patch["position"] = in.Position
	}
	status := in.Status
	if status == "" {
		status = entity.StatusTodo
	}
	if status != existing.Status {
		patch["status"] = status
		if status == entity.StatusCompleted {
			patch["completedAt"] = e.now()
			patch["completedBy"] = actor
		} else if existing.Status == entity.StatusCompleted {
			patch["completedAt"] = store.Undefined
			patch["completedBy"] = store.Undefined
		}
	}

	if len(patch) == 0 {
		return nil
	}

	if err := e.store.Patch(ctx, entity.CollSubtasks, existing.ID, patch); err != nil {
		return fmt.Errorf("replace subtasks: %w", err)
	}
	_, err := e.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionUpdatedSubtask,
		TargetID:    existing.ID,
		TargetType:  "subtask",
		Description: fmt.Sprintf("Updated subtask %q on task %q", in.Label, task.Name),
		Metadata:    map[string]any{"taskId": task.ID},
	})
	return err
}

// toggleSubtask flips one subtask between "todo" and "completed".
func (e *Engine) toggleSubtask(ctx context.Context, actor string, task entity.Task, subtaskID string) error {
	subtask, err := e.getSubtask(ctx, subtaskID)
	if err != nil {
		return fmt.Errorf("toggle subtask: %w", err)
	}
	if subtask.TaskID != task.ID {
		return fault.Validation("subtask does not belong to this task")
	}

	patch := map[string]any{}
	if subtask.Status == entity.StatusCompleted {
		patch["status"] = entity.StatusTodo
		patch["completedAt"] = store.Undefined
		patch["completedBy"] = store.Undefined
	} else {
		patch["status"] = entity.StatusCompleted
		patch["completedAt"] = e.now()
		patch["completedBy"] = actor
	}

	if err := e.store.Patch(ctx, entity.CollSubtasks, subtask.ID, patch); err != nil {
		return fmt.Errorf("toggle subtask: %w", err)
	}

	_, err = e.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionUpdatedSubtask,
		TargetID:    subtask.ID,
		TargetType:  "subtask",
		Description: fmt.Sprintf("Updated subtask %q on task %q", subtask.Label, task.Name),
		Metadata:    map[string]any{"taskId": task.ID},
	})
	return err
}
