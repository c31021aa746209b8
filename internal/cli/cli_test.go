package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crewdeck/internal/entity"
)

const smokeFixture = `companies:
  - key: acme
    name: Acme Co

users:
  - key: alice
    company: acme
    name: alice
    email: alice@acme.test
    role: admin

projects:
  - key: apollo
    company: acme
    name: Apollo
    status: in_progress
`

// runCommand executes one subcommand with shared root options and returns
// its combined stdout.
func runCommand(t *testing.T, opts *RootOptions, build func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := build(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func decodeData(t *testing.T, output string, v any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Equal(t, "ok", resp.Status)
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestWorkflowSmoke(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "smoke.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(smokeFixture), 0o644))

	opts := &RootOptions{
		DB:     filepath.Join(dir, "smoke.db"),
		Format: "json",
		Actor:  "u-admin",
	}

	out, err := runCommand(t, opts, NewSeedCommand, fixture)
	require.NoError(t, err, out)

	out, err = runCommand(t, opts, NewProjectCommand, "list")
	require.NoError(t, err, out)
	var projects []entity.Project
	decodeData(t, out, &projects)
	require.Len(t, projects, 1)
	projectID := projects[0].ID
	assert.Equal(t, "Apollo", projects[0].Name)
	assert.Equal(t, 0, projects[0].TotalTasks)

	out, err = runCommand(t, opts, NewTaskCommand,
		"create", "Ship onboarding",
		"--project", projectID,
		"--subtask", "write copy",
		"--subtask", "review")
	require.NoError(t, err, out)
	var created struct {
		TaskID string `json:"taskId"`
	}
	decodeData(t, out, &created)
	require.NotEmpty(t, created.TaskID)

	out, err = runCommand(t, opts, NewProjectCommand, "show", projectID)
	require.NoError(t, err, out)
	var shown struct {
		Project entity.Project `json:"project"`
		Tasks   []entity.Task  `json:"tasks"`
	}
	decodeData(t, out, &shown)
	assert.Equal(t, 1, shown.Project.TotalTasks)
	require.Len(t, shown.Tasks, 1)
	assert.Equal(t, entity.StatusTodo, shown.Tasks[0].Status)

	out, err = runCommand(t, opts, NewTaskCommand, "complete", created.TaskID)
	require.NoError(t, err, out)

	out, err = runCommand(t, opts, NewActivityCommand, created.TaskID)
	require.NoError(t, err, out)
	var feed []entity.ActivityRecord
	decodeData(t, out, &feed)
	actions := make([]string, 0, len(feed))
	for _, rec := range feed {
		actions = append(actions, rec.ActionType)
	}
	assert.Contains(t, actions, "Created Task")
	assert.Contains(t, actions, "Updated Task")

	out, err = runCommand(t, opts, NewTaskCommand, "delete", created.TaskID)
	require.NoError(t, err, out)

	out, err = runCommand(t, opts, NewProjectCommand, "list")
	require.NoError(t, err, out)
	decodeData(t, out, &projects)
	assert.Equal(t, 0, projects[0].TotalTasks)
	assert.Equal(t, 0, projects[0].CompletedTasks)
}

func TestCommentWorkflow(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "smoke.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(smokeFixture), 0o644))

	opts := &RootOptions{
		DB:     filepath.Join(dir, "smoke.db"),
		Format: "json",
		Actor:  "u-admin",
	}

	out, err := runCommand(t, opts, NewSeedCommand, fixture)
	require.NoError(t, err, out)

	out, err = runCommand(t, opts, NewProjectCommand, "list")
	require.NoError(t, err, out)
	var projects []entity.Project
	decodeData(t, out, &projects)
	projectID := projects[0].ID

	out, err = runCommand(t, opts, NewCommentCommand,
		"add", projectID, "kickoff looks good @alice",
		"--type", "project")
	require.NoError(t, err, out)
	var created struct {
		CommentID string `json:"commentId"`
	}
	decodeData(t, out, &created)
	require.NotEmpty(t, created.CommentID)

	out, err = runCommand(t, opts, NewCommentCommand, "react", created.CommentID, "heart")
	require.NoError(t, err, out)

	out, err = runCommand(t, opts, NewCommentCommand, "list", projectID)
	require.NoError(t, err, out)
	var comments []entity.Comment
	decodeData(t, out, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "kickoff looks good @alice", comments[0].Body)
	assert.Len(t, comments[0].MentionedUserIDs, 1)
	assert.Len(t, comments[0].Reactions["heart"], 1)
}

func TestTaskCreateMissingProject(t *testing.T) {
	opts := &RootOptions{
		DB:     filepath.Join(t.TempDir(), "smoke.db"),
		Format: "text",
		Actor:  "u-admin",
	}

	out, err := runCommand(t, opts, NewTaskCommand,
		"create", "Ship it",
		"--project", "p-ghost",
		"--subtask", "a")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_FOUND]")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestInitIdempotent(t *testing.T) {
	opts := &RootOptions{
		DB:     filepath.Join(t.TempDir(), "smoke.db"),
		Format: "text",
	}

	for i := 0; i < 2; i++ {
		out, err := runCommand(t, opts, NewInitCommand)
		require.NoError(t, err, out)
		assert.Contains(t, out, "initialized")
	}
}

func TestSeedRejectsInvalidFixture(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte("users:\n  - key: orphan\n    company: ghost\n    name: x\n"), 0o644))

	opts := &RootOptions{
		DB:     filepath.Join(dir, "smoke.db"),
		Format: "text",
		Actor:  "u-admin",
	}

	out, err := runCommand(t, opts, NewSeedCommand, fixture)
	require.Error(t, err)
	assert.Contains(t, out, "Error [VALIDATION]")
}
