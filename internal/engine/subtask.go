package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/store"
)

// UpdateSubtaskStatus sets one subtask's status directly. Unlike the
// toggle flow this accepts the full status enum, then runs the canonical
// recompute-and-cascade: the parent task's progress is recomputed over
// the full current subtask set, the auto-complete/auto-reopen rule is
// applied to the task, and any completion edge cascades into the owning
// project's counters.
func (e *Engine) UpdateSubtaskStatus(ctx context.Context, subtaskID, status string) error {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	if !entity.ValidTaskStatus(status) {
		return fault.Validation(fmt.Sprintf("invalid subtask status %q", status))
	}

	subtask, err := e.getSubtask(ctx, subtaskID)
	if err != nil {
		return fmt.Errorf("update subtask status: %w", err)
	}
	task, err := e.getTask(ctx, subtask.TaskID)
	if err != nil {
		return fmt.Errorf("update subtask status: %w", err)
	}
	project, err := e.getProject(ctx, task.ProjectID)
	if err != nil {
		return fmt.Errorf("update subtask status: %w", err)
	}

	if subtask.Status != status {
		patch := map[string]any{"status": status}
		if status == entity.StatusCompleted {
			patch["completedAt"] = e.now()
			patch["completedBy"] = actor
		} else if subtask.Status == entity.StatusCompleted {
			patch["completedAt"] = store.Undefined
			patch["completedBy"] = store.Undefined
		}
		if err := e.store.Patch(ctx, entity.CollSubtasks, subtask.ID, patch); err != nil {
			return fmt.Errorf("update subtask status: %w", err)
		}

		if _, err := e.activity.Append(ctx, activity.Entry{
			UserID:      actor,
			ActionType:  activity.ActionUpdatedSubtask,
			TargetID:    subtask.ID,
			TargetType:  "subtask",
			Description: fmt.Sprintf("Updated subtask %q on task %q", subtask.Label, task.Name),
			Metadata:    map[string]any{"taskId": task.ID, "status": status},
		}); err != nil {
			return err
		}
	}

	subtasks, err := e.listSubtasks(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("update subtask status: %w", err)
	}
	completedCount, total := subtaskCounts(subtasks)

	taskPatch := map[string]any{"progress": entity.Percent(completedCount, total)}
	completedDelta := 0

	if completedCount == total && total > 0 {
		if task.Status != entity.StatusCompleted {
			taskPatch["status"] = entity.StatusCompleted
			taskPatch["completedAt"] = e.now()
			taskPatch["completedBy"] = actor
			completedDelta = 1
		}
	} else if task.Status == entity.StatusCompleted {
		taskPatch["status"] = entity.StatusInProgress
		taskPatch["completedAt"] = store.Undefined
		taskPatch["completedBy"] = store.Undefined
		completedDelta = -1
	}

	if err := e.store.Patch(ctx, entity.CollTasks, task.ID, taskPatch); err != nil {
		return fmt.Errorf("update subtask status: %w", err)
	}

	if completedDelta != 0 {
		if err := e.patchProjectCounters(ctx, project.ID, project.TotalTasks, project.CompletedTasks+completedDelta); err != nil {
			return fmt.Errorf("update subtask status: update project counters: %w", err)
		}
	}

	slog.Debug("subtask status updated",
		"subtask_id", subtask.ID,
		"task_id", task.ID,
		"status", status,
		"completed_delta", completedDelta,
		"actor", actor,
	)

	return nil
}

// UpdateSubtaskPosition reorders one subtask. Pure reorder: no progress
// recomputation and no activity record, so drag-and-drop stays cheap.
func (e *Engine) UpdateSubtaskPosition(ctx context.Context, subtaskID string, position float64) error {
	if _, err := e.resolver.Resolve(ctx); err != nil {
		return err
	}

	if _, err := e.getSubtask(ctx, subtaskID); err != nil {
		return fmt.Errorf("update subtask position: %w", err)
	}

	if err := e.store.Patch(ctx, entity.CollSubtasks, subtaskID, map[string]any{"position": position}); err != nil {
		return fmt.Errorf("update subtask position: %w", err)
	}
	return nil
}
