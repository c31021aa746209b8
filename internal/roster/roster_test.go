package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
	"github.com/roach88/crewdeck/internal/identity"
	"github.com/roach88/crewdeck/internal/store"
	"github.com/roach88/crewdeck/internal/testutil"
)

const testActor = "u-admin"

type testEnv struct {
	store   *store.Store
	acts    *activity.Writer
	service *Service
	ctx     context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequenceIDGenerator("doc")),
		store.WithClock(testutil.NewDeterministicClock()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	acts := activity.NewWriter(s)
	return &testEnv{
		store:   s,
		acts:    acts,
		service: New(s, acts, identity.ContextResolver{}),
		ctx:     identity.WithActor(context.Background(), testActor),
	}
}

func (env *testEnv) seedCompany(t *testing.T) string {
	t.Helper()
	id, err := env.service.CreateCompany(env.ctx, "Acme")
	require.NoError(t, err)
	return id
}

func (env *testEnv) team(t *testing.T, id string) entity.Team {
	t.Helper()
	team, err := env.service.getTeam(env.ctx, id)
	require.NoError(t, err)
	return team
}

func TestCreateCompanyAndUser(t *testing.T) {
	env := newTestEnv(t)
	companyID := env.seedCompany(t)

	userID, err := env.service.CreateUser(env.ctx, companyID, "alice", "alice@acme.test", "member")
	require.NoError(t, err)

	doc, err := env.store.Get(env.ctx, entity.CollUsers, userID)
	require.NoError(t, err)
	var user entity.User
	require.NoError(t, entity.Decode(doc, &user))
	assert.Equal(t, companyID, user.CompanyID)
	assert.Equal(t, "alice", user.Name)

	recs, err := env.acts.ListByTarget(env.ctx, userID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, activity.ActionCreatedUser, recs[0].ActionType)

	_, err = env.service.CreateUser(env.ctx, "ghost", "bob", "", "")
	assert.True(t, fault.IsNotFound(err))
}

func TestEnsureMember(t *testing.T) {
	env := newTestEnv(t)
	companyID := env.seedCompany(t)
	otherID, err := env.service.CreateCompany(env.ctx, "Rival")
	require.NoError(t, err)

	userID, err := env.service.CreateUser(env.ctx, companyID, "alice", "", "member")
	require.NoError(t, err)

	assert.NoError(t, env.service.EnsureMember(env.ctx, companyID, userID))
	assert.True(t, fault.IsUnauthorized(env.service.EnsureMember(env.ctx, otherID, userID)))
	assert.True(t, fault.IsNotFound(env.service.EnsureMember(env.ctx, companyID, "ghost")))
}

func TestTeamMembership(t *testing.T) {
	env := newTestEnv(t)
	companyID := env.seedCompany(t)
	aliceID, err := env.service.CreateUser(env.ctx, companyID, "alice", "", "member")
	require.NoError(t, err)
	bobID, err := env.service.CreateUser(env.ctx, companyID, "bob", "", "member")
	require.NoError(t, err)

	teamID, err := env.service.CreateTeam(env.ctx, companyID, "Platform", []string{aliceID, aliceID})
	require.NoError(t, err)
	assert.Equal(t, []string{aliceID}, env.team(t, teamID).MemberIDs, "creation deduplicates members")

	require.NoError(t, env.service.AddTeamMember(env.ctx, teamID, bobID))
	require.NoError(t, env.service.AddTeamMember(env.ctx, teamID, bobID))
	assert.Equal(t, []string{aliceID, bobID}, env.team(t, teamID).MemberIDs, "re-add is a no-op")

	joined, err := env.acts.ListByUser(env.ctx, bobID)
	require.NoError(t, err)
	var joins int
	for _, r := range joined {
		if r.ActionType == activity.ActionJoinedTeam {
			joins++
		}
	}
	assert.Equal(t, 1, joins, "no-op add logs nothing")

	require.NoError(t, env.service.RemoveTeamMember(env.ctx, teamID, bobID))
	assert.Equal(t, []string{aliceID}, env.team(t, teamID).MemberIDs)

	// Member of another company cannot join.
	otherID, err := env.service.CreateCompany(env.ctx, "Rival")
	require.NoError(t, err)
	strangerID, err := env.service.CreateUser(env.ctx, otherID, "mallory", "", "member")
	require.NoError(t, err)
	assert.True(t, fault.IsUnauthorized(env.service.AddTeamMember(env.ctx, teamID, strangerID)))
}

func TestCreateProject_CountersStartAtZero(t *testing.T) {
	env := newTestEnv(t)
	companyID := env.seedCompany(t)

	projectID, err := env.service.CreateProject(env.ctx, CreateProjectInput{
		CompanyID: companyID,
		Name:      "Apollo",
	})
	require.NoError(t, err)

	doc, err := env.store.Get(env.ctx, entity.CollProjects, projectID)
	require.NoError(t, err)
	var project entity.Project
	require.NoError(t, entity.Decode(doc, &project))
	assert.Equal(t, entity.StatusPlanned, project.Status)
	assert.Equal(t, 0, project.TotalTasks)
	assert.Equal(t, 0, project.CompletedTasks)
	assert.Equal(t, 0, project.Progress)
	assert.Equal(t, testActor, project.CreatedBy)
}

func TestUpdateProject_NeverTouchesCounters(t *testing.T) {
	env := newTestEnv(t)
	companyID := env.seedCompany(t)

	projectID, err := env.service.CreateProject(env.ctx, CreateProjectInput{
		CompanyID: companyID,
		Name:      "Apollo",
	})
	require.NoError(t, err)

	// Simulate task activity having moved the counters.
	require.NoError(t, env.store.Patch(env.ctx, entity.CollProjects, projectID, map[string]any{
		"totalTasks": 4, "completedTasks": 2, "progress": 50,
	}))

	name := "Apollo v2"
	status := entity.StatusInProgress
	require.NoError(t, env.service.UpdateProject(env.ctx, projectID, ProjectPatch{
		Name:   &name,
		Status: &status,
	}))

	doc, err := env.store.Get(env.ctx, entity.CollProjects, projectID)
	require.NoError(t, err)
	var project entity.Project
	require.NoError(t, entity.Decode(doc, &project))
	assert.Equal(t, "Apollo v2", project.Name)
	assert.Equal(t, entity.StatusInProgress, project.Status)
	assert.Equal(t, 4, project.TotalTasks, "edits leave counters alone")
	assert.Equal(t, 2, project.CompletedTasks)
	assert.Equal(t, 50, project.Progress)
	assert.Equal(t, testActor, project.UpdatedBy)
}

func TestUpdateProject_CompletionStamp(t *testing.T) {
	env := newTestEnv(t)
	companyID := env.seedCompany(t)

	projectID, err := env.service.CreateProject(env.ctx, CreateProjectInput{
		CompanyID: companyID,
		Name:      "Apollo",
	})
	require.NoError(t, err)

	done := entity.StatusCompleted
	require.NoError(t, env.service.UpdateProject(env.ctx, projectID, ProjectPatch{Status: &done}))
	doc, err := env.store.Get(env.ctx, entity.CollProjects, projectID)
	require.NoError(t, err)
	assert.Contains(t, doc, "completedAt")

	reopen := entity.StatusInProgress
	require.NoError(t, env.service.UpdateProject(env.ctx, projectID, ProjectPatch{Status: &reopen}))
	doc, err = env.store.Get(env.ctx, entity.CollProjects, projectID)
	require.NoError(t, err)
	assert.NotContains(t, doc, "completedAt")
}

func TestDeleteProject_DoesNotCascadeToTasks(t *testing.T) {
	env := newTestEnv(t)
	companyID := env.seedCompany(t)

	projectID, err := env.service.CreateProject(env.ctx, CreateProjectInput{
		CompanyID: companyID,
		Name:      "Apollo",
	})
	require.NoError(t, err)

	taskID, err := env.store.Insert(env.ctx, entity.CollTasks, map[string]any{
		"projectId": projectID,
		"name":      "survivor",
		"status":    entity.StatusTodo,
		"progress":  0,
	})
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteProject(env.ctx, projectID))

	_, err = env.store.Get(env.ctx, entity.CollProjects, projectID)
	assert.True(t, fault.IsNotFound(err))
	_, err = env.store.Get(env.ctx, entity.CollTasks, taskID)
	assert.NoError(t, err, "tasks outlive their project")
}

func TestMutations_RequireActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreateCompany(ctx, "x")
	assert.True(t, fault.IsUnauthenticated(err))
	_, err = env.service.CreateProject(ctx, CreateProjectInput{CompanyID: "c", Name: "x"})
	assert.True(t, fault.IsUnauthenticated(err))
	assert.True(t, fault.IsUnauthenticated(env.service.DeleteProject(ctx, "p")))
}
