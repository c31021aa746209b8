package engine

import (
	"context"
	"fmt"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/identity"
	"github.com/roach88/crewdeck/internal/store"
)

// Engine executes task and subtask mutations and keeps the denormalized
// progress state consistent. See the package documentation for the
// aggregation rules.
type Engine struct {
	store    *store.Store
	activity *activity.Writer
	resolver identity.Resolver
	clock    store.Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for completion stamps.
// Tests use this with a deterministic clock.
func WithClock(c store.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an Engine over the given store, activity writer, and actor
// resolver.
func New(s *store.Store, w *activity.Writer, r identity.Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		activity: w,
		resolver: r,
		clock:    store.SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// now returns the current instant as Unix milliseconds, the timestamp
// unit used across all stored documents.
func (e *Engine) now() int64 {
	return e.clock.Now().UnixMilli()
}

// getTask loads and decodes a task document.
func (e *Engine) getTask(ctx context.Context, taskID string) (entity.Task, error) {
	var task entity.Task
	doc, err := e.store.Get(ctx, entity.CollTasks, taskID)
	if err != nil {
		return task, err
	}
	if err := entity.Decode(doc, &task); err != nil {
		return task, fmt.Errorf("load task %s: %w", taskID, err)
	}
	return task, nil
}

// getProject loads and decodes a project document.
func (e *Engine) getProject(ctx context.Context, projectID string) (entity.Project, error) {
	var project entity.Project
	doc, err := e.store.Get(ctx, entity.CollProjects, projectID)
	if err != nil {
		return project, err
	}
	if err := entity.Decode(doc, &project); err != nil {
		return project, fmt.Errorf("load project %s: %w", projectID, err)
	}
	return project, nil
}

// getSubtask loads and decodes a subtask document.
func (e *Engine) getSubtask(ctx context.Context, subtaskID string) (entity.Subtask, error) {
	var subtask entity.Subtask
	doc, err := e.store.Get(ctx, entity.CollSubtasks, subtaskID)
	if err != nil {
		return subtask, err
	}
	if err := entity.Decode(doc, &subtask); err != nil {
		return subtask, fmt.Errorf("load subtask %s: %w", subtaskID, err)
	}
	return subtask, nil
}

// listSubtasks returns a task's subtasks in insertion order.
func (e *Engine) listSubtasks(ctx context.Context, taskID string) ([]entity.Subtask, error) {
	docs, err := e.store.Find(ctx, entity.CollSubtasks, "taskId", taskID)
	if err != nil {
		return nil, err
	}
	subtasks := make([]entity.Subtask, 0, len(docs))
	for _, doc := range docs {
		var st entity.Subtask
		if err := entity.Decode(doc, &st); err != nil {
			return nil, fmt.Errorf("load subtasks of %s: %w", taskID, err)
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, nil
}

// Subtasks returns a task's subtasks in insertion order. Read-only
// accessor for callers that render or post-process a task, such as the
// seed importer and the CLI.
func (e *Engine) Subtasks(ctx context.Context, taskID string) ([]entity.Subtask, error) {
	return e.listSubtasks(ctx, taskID)
}

// subtaskCounts returns (completed, total) over a subtask set.
func subtaskCounts(subtasks []entity.Subtask) (completed, total int) {
	for _, st := range subtasks {
		if st.Status == entity.StatusCompleted {
			completed++
		}
	}
	return completed, len(subtasks)
}

// patchProjectCounters writes the project's counters and derived progress
// in one patch. Counters are clamped at zero and completedTasks never
// exceeds totalTasks.
func (e *Engine) patchProjectCounters(ctx context.Context, projectID string, totalTasks, completedTasks int) error {
	if totalTasks < 0 {
		totalTasks = 0
	}
	if completedTasks < 0 {
		completedTasks = 0
	}
	if completedTasks > totalTasks {
		completedTasks = totalTasks
	}
	return e.store.Patch(ctx, entity.CollProjects, projectID, map[string]any{
		"totalTasks":     totalTasks,
		"completedTasks": completedTasks,
		"progress":       entity.Percent(completedTasks, totalTasks),
	})
}
