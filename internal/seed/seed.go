// Package seed loads YAML fixture files and imports them through the
// regular mutation surface, so seeded data carries the same counters,
// stamps, and activity trail as data created interactively. Fixtures are
// validated against an embedded CUE schema before any write happens.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/crewdeck/internal/engine"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/roster"
)

//go:embed schema.cue
var schemaCUE []byte

// Fixture is one seed file. Entities reference each other by fixture-local
// keys, which the importer resolves to real document ids in dependency
// order: companies, users, teams, projects, tasks.
type Fixture struct {
	Companies []CompanyFixture `yaml:"companies" json:"companies"`
	Users     []UserFixture    `yaml:"users" json:"users"`
	Teams     []TeamFixture    `yaml:"teams" json:"teams"`
	Projects  []ProjectFixture `yaml:"projects" json:"projects"`
	Tasks     []TaskFixture    `yaml:"tasks" json:"tasks"`
}

type CompanyFixture struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
}

type UserFixture struct {
	Key     string `yaml:"key" json:"key"`
	Company string `yaml:"company" json:"company"`
	Name    string `yaml:"name" json:"name"`
	Email   string `yaml:"email,omitempty" json:"email,omitempty"`
	Role    string `yaml:"role,omitempty" json:"role,omitempty"`
}

type TeamFixture struct {
	Key     string   `yaml:"key" json:"key"`
	Company string   `yaml:"company" json:"company"`
	Name    string   `yaml:"name" json:"name"`
	Members []string `yaml:"members" json:"members"`
}

type ProjectFixture struct {
	Key         string `yaml:"key" json:"key"`
	Company     string `yaml:"company" json:"company"`
	Name        string `yaml:"name" json:"name"`
	Status      string `yaml:"status,omitempty" json:"status,omitempty"`
	Priority    string `yaml:"priority,omitempty" json:"priority,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type TaskFixture struct {
	Project  string           `yaml:"project" json:"project"`
	Name     string           `yaml:"name" json:"name"`
	Assignee string           `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	Status   string           `yaml:"status,omitempty" json:"status,omitempty"`
	Priority string           `yaml:"priority,omitempty" json:"priority,omitempty"`
	Subtasks []SubtaskFixture `yaml:"subtasks" json:"subtasks"`
}

type SubtaskFixture struct {
	Label  string `yaml:"label" json:"label"`
	Status string `yaml:"status,omitempty" json:"status,omitempty"`
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(raw)
}

// Parse decodes fixture YAML and validates it against the embedded
// schema.
func Parse(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fault.Validation(fmt.Sprintf("fixture is not valid YAML: %v", err))
	}
	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// validate unifies the fixture with the CUE schema. The fixture is
// re-encoded through its json tags, so what CUE sees is exactly what the
// importer will consume.
func validate(f *Fixture) error {
	// Omitted sections decode to nil; the schema expects lists.
	if f.Companies == nil {
		f.Companies = []CompanyFixture{}
	}
	if f.Users == nil {
		f.Users = []UserFixture{}
	}
	if f.Teams == nil {
		f.Teams = []TeamFixture{}
	}
	if f.Projects == nil {
		f.Projects = []ProjectFixture{}
	}
	if f.Tasks == nil {
		f.Tasks = []TaskFixture{}
	}
	for i := range f.Teams {
		if f.Teams[i].Members == nil {
			f.Teams[i].Members = []string{}
		}
	}

	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile fixture schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Fixture"))
	if !def.Exists() {
		return fmt.Errorf("fixture schema has no #Fixture definition")
	}

	unified := def.Unify(ctx.Encode(f))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fault.Validation(fmt.Sprintf("fixture does not match schema: %v", err))
	}
	return nil
}

// Result maps fixture keys to the document ids the import produced.
type Result struct {
	Companies map[string]string
	Users     map[string]string
	Teams     map[string]string
	Projects  map[string]string
	TaskIDs   []string
}

// Importer writes fixtures through the roster and engine services.
type Importer struct {
	roster *roster.Service
	engine *engine.Engine
}

// NewImporter returns an Importer over the given services.
func NewImporter(r *roster.Service, e *engine.Engine) *Importer {
	return &Importer{roster: r, engine: e}
}

// Import creates every fixture entity in dependency order. The actor on
// ctx is attributed for all resulting activity. Unknown cross-references
// fail with a validation error before the offending write.
func (im *Importer) Import(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{
		Companies: map[string]string{},
		Users:     map[string]string{},
		Teams:     map[string]string{},
		Projects:  map[string]string{},
	}

	for _, c := range f.Companies {
		if _, dup := res.Companies[c.Key]; dup {
			return nil, fault.Validation(fmt.Sprintf("duplicate company key %q", c.Key))
		}
		id, err := im.roster.CreateCompany(ctx, c.Name)
		if err != nil {
			return nil, fmt.Errorf("import company %q: %w", c.Key, err)
		}
		res.Companies[c.Key] = id
	}

	for _, u := range f.Users {
		companyID, ok := res.Companies[u.Company]
		if !ok {
			return nil, fault.Validation(fmt.Sprintf("user %q references unknown company %q", u.Key, u.Company))
		}
		if _, dup := res.Users[u.Key]; dup {
			return nil, fault.Validation(fmt.Sprintf("duplicate user key %q", u.Key))
		}
		id, err := im.roster.CreateUser(ctx, companyID, u.Name, u.Email, u.Role)
		if err != nil {
			return nil, fmt.Errorf("import user %q: %w", u.Key, err)
		}
		res.Users[u.Key] = id
	}

	for _, tm := range f.Teams {
		companyID, ok := res.Companies[tm.Company]
		if !ok {
			return nil, fault.Validation(fmt.Sprintf("team %q references unknown company %q", tm.Key, tm.Company))
		}
		members := make([]string, 0, len(tm.Members))
		for _, key := range tm.Members {
			id, ok := res.Users[key]
			if !ok {
				return nil, fault.Validation(fmt.Sprintf("team %q references unknown user %q", tm.Key, key))
			}
			members = append(members, id)
		}
		id, err := im.roster.CreateTeam(ctx, companyID, tm.Name, members)
		if err != nil {
			return nil, fmt.Errorf("import team %q: %w", tm.Key, err)
		}
		res.Teams[tm.Key] = id
	}

	for _, p := range f.Projects {
		companyID, ok := res.Companies[p.Company]
		if !ok {
			return nil, fault.Validation(fmt.Sprintf("project %q references unknown company %q", p.Key, p.Company))
		}
		id, err := im.roster.CreateProject(ctx, roster.CreateProjectInput{
			CompanyID:   companyID,
			Name:        p.Name,
			Status:      p.Status,
			Priority:    p.Priority,
			Description: p.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("import project %q: %w", p.Key, err)
		}
		res.Projects[p.Key] = id
	}

	for i, task := range f.Tasks {
		projectID, ok := res.Projects[task.Project]
		if !ok {
			return nil, fault.Validation(fmt.Sprintf("task %d references unknown project %q", i, task.Project))
		}
		assigneeID := ""
		if task.Assignee != "" {
			assigneeID, ok = res.Users[task.Assignee]
			if !ok {
				return nil, fault.Validation(fmt.Sprintf("task %d references unknown user %q", i, task.Assignee))
			}
		}
		subtasks := make([]engine.SubtaskInput, len(task.Subtasks))
		for j, st := range task.Subtasks {
			subtasks[j] = engine.SubtaskInput{Label: st.Label, Status: st.Status}
		}
		id, err := im.engine.CreateTask(ctx, engine.CreateTaskInput{
			ProjectID:  projectID,
			Name:       task.Name,
			AssigneeID: assigneeID,
			Status:     task.Status,
			Priority:   task.Priority,
			Subtasks:   subtasks,
		})
		if err != nil {
			return nil, fmt.Errorf("import task %d: %w", i, err)
		}
		res.TaskIDs = append(res.TaskIDs, id)

		// Creation normalizes subtask statuses to todo; replay the
		// fixture statuses through the regular mutation so progress and
		// auto-completion settle exactly as they would interactively.
		if err := im.applySubtaskStatuses(ctx, id, task.Subtasks); err != nil {
			return nil, fmt.Errorf("import task %d: %w", i, err)
		}
	}

	slog.Info("fixture imported",
		"companies", len(res.Companies),
		"users", len(res.Users),
		"teams", len(res.Teams),
		"projects", len(res.Projects),
		"tasks", len(res.TaskIDs),
	)
	return res, nil
}

// applySubtaskStatuses moves freshly created subtasks to their fixture
// statuses. Subtasks come back in insertion order, matching the fixture
// order.
func (im *Importer) applySubtaskStatuses(ctx context.Context, taskID string, fixtures []SubtaskFixture) error {
	needed := false
	for _, st := range fixtures {
		if st.Status != "" && st.Status != entity.StatusTodo {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	subtasks, err := im.engine.Subtasks(ctx, taskID)
	if err != nil {
		return err
	}
	if len(subtasks) != len(fixtures) {
		return fmt.Errorf("task %s has %d subtasks, fixture lists %d", taskID, len(subtasks), len(fixtures))
	}
	for i, st := range fixtures {
		if st.Status == "" || st.Status == entity.StatusTodo {
			continue
		}
		if err := im.engine.UpdateSubtaskStatus(ctx, subtasks[i].ID, st.Status); err != nil {
			return err
		}
	}
	return nil
}
