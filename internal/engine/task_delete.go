package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
)

// taskDeleteResult carries the project-counter consequence of one task
// deletion out of the core.
type taskDeleteResult struct {
	projectID      string
	totalDelta     int
	completedDelta int
}

// DeleteTask deletes a task and cascades to all of its subtasks. One
// "Subtask Deleted" activity is logged per subtask before deletion, then
// the task is deleted, the project's totalTasks (and completedTasks, if
// the task was completed) are decremented, and the previous assignee is
// notified via activity if one existed.
//
// Projects are not cascade-deleted the other way, so a task can outlive
// its project; deleting such an orphan skips the counter update.
func (e *Engine) DeleteTask(ctx context.Context, taskID string) error {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	res, err := e.deleteTaskCore(ctx, actor, taskID)
	if err != nil {
		return err
	}

	project, err := e.getProject(ctx, res.projectID)
	if fault.IsNotFound(err) {
		slog.Warn("deleted task had no project, skipping counter update",
			"task_id", taskID,
			"project_id", res.projectID,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if err := e.patchProjectCounters(ctx, project.ID,
		project.TotalTasks+res.totalDelta,
		project.CompletedTasks+res.completedDelta,
	); err != nil {
		return fmt.Errorf("delete task: update project counters: %w", err)
	}

	return nil
}

// deleteTaskCore deletes the task and its subtasks and reports the
// counter deltas for the owning project. Bulk deletes accumulate these
// and patch each project once at the end of the batch.
func (e *Engine) deleteTaskCore(ctx context.Context, actor, taskID string) (taskDeleteResult, error) {
	var res taskDeleteResult

	task, err := e.getTask(ctx, taskID)
	if err != nil {
		return res, fmt.Errorf("delete task: %w", err)
	}
	res.projectID = task.ProjectID

	subtasks, err := e.listSubtasks(ctx, task.ID)
	if err != nil {
		return res, fmt.Errorf("delete task: %w", err)
	}
	for _, st := range subtasks {
		if _, err := e.activity.Append(ctx, activity.Entry{
			UserID:      actor,
			ActionType:  activity.ActionSubtaskDeleted,
			TargetID:    st.ID,
			TargetType:  "subtask",
			Description: fmt.Sprintf("Deleted subtask %q from task %q", st.Label, task.Name),
			Metadata:    map[string]any{"taskId": task.ID},
		}); err != nil {
			return res, err
		}
		if err := e.store.Delete(ctx, entity.CollSubtasks, st.ID); err != nil {
			return res, fmt.Errorf("delete task: cascade subtask: %w", err)
		}
	}

	if err := e.store.Delete(ctx, entity.CollTasks, task.ID); err != nil {
		return res, fmt.Errorf("delete task: %w", err)
	}

	if _, err := e.activity.Append(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  activity.ActionDeletedTask,
		TargetID:    task.ID,
		TargetType:  "task",
		Description: fmt.Sprintf("Deleted task %q", task.Name),
		Metadata:    map[string]any{"projectId": task.ProjectID, "subtasks": len(subtasks)},
	}); err != nil {
		return res, err
	}

	if task.AssigneeID != "" {
		if err := e.logUnassigned(ctx, task.AssigneeID, task.ID, task.Name); err != nil {
			return res, err
		}
	}

	res.totalDelta = -1
	if task.Status == entity.StatusCompleted {
		res.completedDelta = -1
	}

	slog.Info("task deleted",
		"task_id", task.ID,
		"project_id", task.ProjectID,
		"subtasks", len(subtasks),
		"actor", actor,
	)

	return res, nil
}
