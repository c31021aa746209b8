package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crewdeck/internal/seed"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Actor is the authenticated user id for every step. Defaults to
	// "u-harness".
	Actor string `yaml:"actor,omitempty"`

	// Seed is an inline fixture imported before the flow runs. Seeded
	// entities are addressable in step args as $project:key, $user:key,
	// $task:index.
	Seed *seed.Fixture `yaml:"seed,omitempty"`

	// Flow is the ordered list of mutations to execute.
	Flow []Step `yaml:"flow"`

	// Assertions validate the activity feed and final state after the
	// flow completes.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one mutation in a scenario flow.
type Step struct {
	// Op names the operation: create_task, update_task, delete_task,
	// bulk_update, bulk_delete, subtask_status, subtask_position,
	// comment, update_comment, react, unreact.
	Op string `yaml:"op"`

	// As registers the id this step creates under $<name> for later
	// steps and assertions. Only meaningful for creating ops.
	As string `yaml:"as,omitempty"`

	// Args are the operation arguments. String values starting with "$"
	// are resolved against seeded and step-registered ids; "$ref/2"
	// addresses the third subtask of the referenced task.
	Args map[string]any `yaml:"args"`

	// ExpectError is the fault kind this step must fail with
	// (VALIDATION, NOT_FOUND, UNAUTHORIZED, UNAUTHENTICATED). Empty
	// means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the run outcome.
type Assertion struct {
	// Type is one of activity_count, activity_order, project_state,
	// task_state, comment_state.
	Type string `yaml:"type"`

	// Target is the entity reference the assertion inspects.
	Target string `yaml:"target,omitempty"`

	// Action is the activity action type (activity_count).
	Action string `yaml:"action,omitempty"`

	// Count is the expected occurrence count (activity_count).
	Count int `yaml:"count"`

	// Actions is the expected action order on the target
	// (activity_order).
	Actions []string `yaml:"actions,omitempty"`

	// Expect holds expected field values, subset-matched against the
	// stored document (project_state, task_state, comment_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertActivityCount = "activity_count"
	AssertActivityOrder = "activity_order"
	AssertProjectState  = "project_state"
	AssertTaskState     = "task_state"
	AssertCommentState  = "comment_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping assertions.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must be non-empty")
	}
	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use an empty map)", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertActivityCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for activity_count", index)
		}
	case AssertActivityOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for activity_order", index)
		}
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for activity_order", index)
		}
	case AssertProjectState, AssertTaskState, AssertCommentState:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for %s", index, a.Type)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
