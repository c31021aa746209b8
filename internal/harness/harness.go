package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/comments"
	"github.com/roach88/crewdeck/internal/engine"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/identity"
	"github.com/roach88/crewdeck/internal/roster"
	"github.com/roach88/crewdeck/internal/seed"
	"github.com/roach88/crewdeck/internal/store"
	"github.com/roach88/crewdeck/internal/testutil"
)

const defaultActor = "u-harness"

// Result holds a finished scenario run: the store for state assertions,
// the id registry, and the full activity feed in append order.
type Result struct {
	Feed []entity.ActivityRecord

	store *store.Store
	refs  map[string]string
	eng   *engine.Engine
	ctx   context.Context
}

// Close releases the run's database.
func (r *Result) Close() error {
	return r.store.Close()
}

// Run executes a scenario against a fresh in-memory workspace with
// deterministic ids and clock, so repeated runs produce byte-identical
// activity traces.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	s, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequenceIDGenerator("doc")),
		store.WithClock(clock),
	)
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}

	actor := scenario.Actor
	if actor == "" {
		actor = defaultActor
	}
	ctx := identity.WithActor(context.Background(), actor)

	acts := activity.NewWriter(s)
	resolver := identity.ContextResolver{}
	eng := engine.New(s, acts, resolver, engine.WithClock(clock))
	cmts := comments.New(s, acts, resolver, comments.WithClock(clock))
	rost := roster.New(s, acts, resolver)

	r := &Result{
		store: s,
		refs:  map[string]string{},
		eng:   eng,
		ctx:   ctx,
	}

	if scenario.Seed != nil {
		res, err := seed.NewImporter(rost, eng).Import(ctx, scenario.Seed)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("seed scenario %s: %w", scenario.Name, err)
		}
		for key, id := range res.Companies {
			r.refs["company:"+key] = id
		}
		for key, id := range res.Users {
			r.refs["user:"+key] = id
		}
		for key, id := range res.Teams {
			r.refs["team:"+key] = id
		}
		for key, id := range res.Projects {
			r.refs["project:"+key] = id
		}
		for i, id := range res.TaskIDs {
			r.refs["task:"+strconv.Itoa(i)] = id
		}
	}

	for i, step := range scenario.Flow {
		if err := r.runStep(cmts, step); err != nil {
			s.Close()
			return nil, fmt.Errorf("scenario %s flow[%d] (%s): %w", scenario.Name, i, step.Op, err)
		}
	}

	feed, err := r.loadFeed()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	r.Feed = feed
	return r, nil
}

func (r *Result) runStep(cmts *comments.Service, step Step) error {
	id, err := r.execute(cmts, step)

	if step.ExpectError != "" {
		if err == nil {
			return fmt.Errorf("expected %s error, step succeeded", step.ExpectError)
		}
		if kind := faultKind(err); kind != step.ExpectError {
			return fmt.Errorf("expected %s error, got %s: %v", step.ExpectError, kind, err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if step.As != "" {
		if id == "" {
			return fmt.Errorf("step op %q produces no id to register as %q", step.Op, step.As)
		}
		r.refs[step.As] = id
	}
	return nil
}

// execute dispatches one step. Creating ops return the new document id.
func (r *Result) execute(cmts *comments.Service, step Step) (string, error) {
	args := step.Args
	switch step.Op {
	case "create_task":
		subtasks, err := r.subtaskInputs(args["subtasks"])
		if err != nil {
			return "", err
		}
		projectID, err := r.resolve(stringArg(args, "project"))
		if err != nil {
			return "", err
		}
		assigneeID, err := r.resolve(stringArg(args, "assignee"))
		if err != nil {
			return "", err
		}
		return r.eng.CreateTask(r.ctx, engine.CreateTaskInput{
			ProjectID:  projectID,
			Name:       stringArg(args, "name"),
			AssigneeID: assigneeID,
			Status:     stringArg(args, "status"),
			Priority:   stringArg(args, "priority"),
			Subtasks:   subtasks,
		})

	case "update_task":
		input, err := r.updateTaskInput(args)
		if err != nil {
			return "", err
		}
		return "", r.eng.UpdateTask(r.ctx, input)

	case "delete_task":
		taskID, err := r.resolve(stringArg(args, "task"))
		if err != nil {
			return "", err
		}
		return "", r.eng.DeleteTask(r.ctx, taskID)

	case "bulk_update":
		items, ok := args["items"].([]any)
		if !ok {
			return "", fmt.Errorf("bulk_update requires an items list")
		}
		inputs := make([]engine.UpdateTaskInput, 0, len(items))
		for _, raw := range items {
			m, ok := raw.(map[string]any)
			if !ok {
				return "", fmt.Errorf("bulk_update item must be a map")
			}
			input, err := r.updateTaskInput(m)
			if err != nil {
				return "", err
			}
			inputs = append(inputs, input)
		}
		res, err := r.eng.BulkUpdateTasks(r.ctx, inputs)
		if err != nil {
			return "", err
		}
		return "", r.checkBulk(args, res)

	case "bulk_delete":
		refs, ok := args["tasks"].([]any)
		if !ok {
			return "", fmt.Errorf("bulk_delete requires a tasks list")
		}
		ids := make([]string, 0, len(refs))
		for _, raw := range refs {
			id, err := r.resolve(fmt.Sprint(raw))
			if err != nil {
				return "", err
			}
			ids = append(ids, id)
		}
		res, err := r.eng.BulkDeleteTasks(r.ctx, ids)
		if err != nil {
			return "", err
		}
		return "", r.checkBulk(args, res)

	case "subtask_status":
		subtaskID, err := r.resolve(stringArg(args, "subtask"))
		if err != nil {
			return "", err
		}
		return "", r.eng.UpdateSubtaskStatus(r.ctx, subtaskID, stringArg(args, "status"))

	case "subtask_position":
		subtaskID, err := r.resolve(stringArg(args, "subtask"))
		if err != nil {
			return "", err
		}
		position, err := floatArg(args, "position")
		if err != nil {
			return "", err
		}
		return "", r.eng.UpdateSubtaskPosition(r.ctx, subtaskID, position)

	case "comment":
		targetID, err := r.resolve(stringArg(args, "target"))
		if err != nil {
			return "", err
		}
		var mentions []string
		if raw, ok := args["mentions"].([]any); ok {
			for _, m := range raw {
				id, err := r.resolve(fmt.Sprint(m))
				if err != nil {
					return "", err
				}
				mentions = append(mentions, id)
			}
		}
		return cmts.Create(r.ctx, comments.CreateInput{
			TargetID:         targetID,
			TargetType:       stringArg(args, "target_type"),
			Body:             stringArg(args, "body"),
			MentionedUserIDs: mentions,
		})

	case "update_comment":
		commentID, err := r.resolve(stringArg(args, "comment"))
		if err != nil {
			return "", err
		}
		return "", cmts.Update(r.ctx, commentID, stringArg(args, "body"), nil)

	case "react":
		commentID, err := r.resolve(stringArg(args, "comment"))
		if err != nil {
			return "", err
		}
		return "", cmts.AddReaction(r.ctx, commentID, stringArg(args, "kind"))

	case "unreact":
		commentID, err := r.resolve(stringArg(args, "comment"))
		if err != nil {
			return "", err
		}
		return "", cmts.RemoveReaction(r.ctx, commentID, stringArg(args, "kind"))

	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

// updateTaskInput builds an UpdateTaskInput from step args shared by
// update_task and bulk_update items.
func (r *Result) updateTaskInput(args map[string]any) (engine.UpdateTaskInput, error) {
	var input engine.UpdateTaskInput

	taskID, err := r.resolve(stringArg(args, "task"))
	if err != nil {
		return input, err
	}
	input.TaskID = taskID

	if v, ok := args["name"]; ok {
		s := fmt.Sprint(v)
		input.Fields.Name = &s
	}
	if v, ok := args["status"]; ok {
		s := fmt.Sprint(v)
		input.Fields.Status = &s
	}
	if v, ok := args["assignee"]; ok {
		id, err := r.resolve(fmt.Sprint(v))
		if err != nil {
			return input, err
		}
		input.Fields.AssigneeID = &id
	}
	if v, ok := args["toggle"]; ok {
		id, err := r.resolve(fmt.Sprint(v))
		if err != nil {
			return input, err
		}
		input.ToggleSubtaskID = id
	}
	if raw, ok := args["subtasks"]; ok {
		subtasks, err := r.subtaskInputs(raw)
		if err != nil {
			return input, err
		}
		input.Subtasks = subtasks
	}
	return input, nil
}

// subtaskInputs converts a YAML subtask list. A nil raw value yields an
// explicit empty (non-nil) slice so replacement semantics still apply.
func (r *Result) subtaskInputs(raw any) ([]engine.SubtaskInput, error) {
	if raw == nil {
		return []engine.SubtaskInput{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("subtasks must be a list")
	}
	out := make([]engine.SubtaskInput, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("subtask entry must be a map")
		}
		var in engine.SubtaskInput
		if v, ok := m["id"]; ok {
			id, err := r.resolve(fmt.Sprint(v))
			if err != nil {
				return nil, err
			}
			in.ID = id
		}
		in.Label = stringArg(m, "label")
		in.Status = stringArg(m, "status")
		if _, ok := m["position"]; ok {
			p, err := floatArg(m, "position")
			if err != nil {
				return nil, err
			}
			in.Position = p
		}
		out = append(out, in)
	}
	return out, nil
}

// checkBulk validates the optional expect_processed / expect_errors args
// against a bulk result.
func (r *Result) checkBulk(args map[string]any, res engine.BulkResult) error {
	if v, ok := args["expect_processed"]; ok {
		want, err := intValue(v)
		if err != nil {
			return err
		}
		if res.ProcessedCount != want {
			return fmt.Errorf("expected %d processed, got %d", want, res.ProcessedCount)
		}
	}
	if v, ok := args["expect_errors"]; ok {
		want, err := intValue(v)
		if err != nil {
			return err
		}
		if len(res.Errors) != want {
			return fmt.Errorf("expected %d element errors, got %d: %v", want, len(res.Errors), res.Errors)
		}
	}
	return nil
}

// resolve maps a $-reference to a document id. "$ref/2" addresses the
// third subtask, in insertion order, of the task "$ref" names. Plain
// strings pass through untouched.
func (r *Result) resolve(ref string) (string, error) {
	if !strings.HasPrefix(ref, "$") {
		return ref, nil
	}
	name := strings.TrimPrefix(ref, "$")

	if base, idx, found := strings.Cut(name, "/"); found {
		taskID, ok := r.refs[base]
		if !ok {
			return "", fmt.Errorf("unknown reference %q", ref)
		}
		n, err := strconv.Atoi(idx)
		if err != nil {
			return "", fmt.Errorf("bad subtask index in %q", ref)
		}
		subtasks, err := r.eng.Subtasks(r.ctx, taskID)
		if err != nil {
			return "", err
		}
		if n < 0 || n >= len(subtasks) {
			return "", fmt.Errorf("reference %q: task has %d subtasks", ref, len(subtasks))
		}
		return subtasks[n].ID, nil
	}

	id, ok := r.refs[name]
	if !ok {
		return "", fmt.Errorf("unknown reference %q", ref)
	}
	return id, nil
}

// loadFeed returns every activity record in append order.
func (r *Result) loadFeed() ([]entity.ActivityRecord, error) {
	docs, err := r.store.All(r.ctx, entity.CollActivities)
	if err != nil {
		return nil, err
	}
	feed := make([]entity.ActivityRecord, 0, len(docs))
	for _, doc := range docs {
		var rec entity.ActivityRecord
		if err := entity.Decode(doc, &rec); err != nil {
			return nil, err
		}
		feed = append(feed, rec)
	}
	return feed, nil
}

// faultKind extracts the fault kind for expect_error matching.
func faultKind(err error) string {
	switch {
	case fault.IsValidation(err):
		return "VALIDATION"
	case fault.IsNotFound(err):
		return "NOT_FOUND"
	case fault.IsUnauthorized(err):
		return "UNAUTHORIZED"
	case fault.IsUnauthenticated(err):
		return "UNAUTHENTICATED"
	}
	return "UNKNOWN"
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func floatArg(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, args[key])
	}
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}
