package comments

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

const testActor = "u-author"

type testEnv struct {
	store   *store.Store
	acts    *activity.Writer
	service *Service
	ctx     context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := testutil.NewDeterministicClock()
	s, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequenceIDGenerator("doc")),
		store.WithClock(clock),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	acts := activity.NewWriter(s)
	return &testEnv{
		store:   s,
		acts:    acts,
		service: New(s, acts, identity.ContextResolver{}, WithClock(clock)),
		ctx:     identity.WithActor(context.Background(), testActor),
	}
}

// seedUser inserts a user with the given name and returns its id.
func (env *testEnv) seedUser(t *testing.T, name string) string {
	t.Helper()
	id, err := env.store.Insert(env.ctx, entity.CollUsers, map[string]any{
		"companyId": "co-1",
		"name":      name,
		"email":     name + "@example.com",
		"role":      "member",
	})
	require.NoError(t, err)
	return id
}

func (env *testEnv) comment(t *testing.T, id string) entity.Comment {
	t.Helper()
	c, err := env.service.getComment(env.ctx, id)
	require.NoError(t, err)
	return c
}

func (env *testEnv) as(userID string) context.Context {
	return identity.WithActor(context.Background(), userID)
}

func TestCreate_MentionUnionDeduplicated(t *testing.T) {
	env := newTestEnv(t)
	aliceID := env.seedUser(t, "alice")
	bobID := env.seedUser(t, "bob")

	// bob is both parsed from the body and passed explicitly; the stored
	// set contains each id once.
	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:         "task-1",
		TargetType:       "task",
		Body:             "hello @alice @bob",
		MentionedUserIDs: []string{bobID},
	})
	require.NoError(t, err)

	comment := env.comment(t, id)
	assert.ElementsMatch(t, []string{aliceID, bobID}, comment.MentionedUserIDs)
	assert.Equal(t, testActor, comment.AuthorID)
	assert.NotZero(t, comment.CreatedAt)
}

func TestCreate_UnresolvableMentionsDropped(t *testing.T) {
	env := newTestEnv(t)
	aliceID := env.seedUser(t, "alice")

	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "ping @alice and @nobody-here",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{aliceID}, env.comment(t, id).MentionedUserIDs)
}

func TestCreate_MentionMatchingIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Alice")

	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "cc @alice",
	})
	require.NoError(t, err)

	assert.Empty(t, env.comment(t, id).MentionedUserIDs)
}

func TestCreate_MentionBodyIsNFCNormalized(t *testing.T) {
	env := newTestEnv(t)
	josID := env.seedUser(t, "jos")
	joseID := env.seedUser(t, "jose")

	// "jose" followed by a combining acute accent. NFC composes the
	// trailing e and the accent into é, which is outside the mention
	// alphabet, so the captured token is "jos" no matter how the input
	// spells the accent.
	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "thanks @jose\u0301",
	})
	require.NoError(t, err)

	mentions := env.comment(t, id).MentionedUserIDs
	assert.Equal(t, []string{josID}, mentions)
	assert.NotContains(t, mentions, joseID)
}

func TestCreate_TrailingPunctuationNotPartOfMention(t *testing.T) {
	env := newTestEnv(t)
	aliceID := env.seedUser(t, "alice")

	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "thanks @alice!",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{aliceID}, env.comment(t, id).MentionedUserIDs)
}

func TestCreate_ReplyRequiresExistingParent(t *testing.T) {
	env := newTestEnv(t)

	parentID, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "first",
	})
	require.NoError(t, err)

	replyID, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "second",
		ParentID:   parentID,
	})
	require.NoError(t, err)
	assert.Equal(t, parentID, env.comment(t, replyID).ParentID)

	_, err = env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "orphan",
		ParentID:   "ghost",
	})
	assert.True(t, fault.IsNotFound(err))
}

func TestCreate_EmitsCommentedActivity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "note",
	})
	require.NoError(t, err)

	recs, err := env.acts.ListByTarget(env.ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, activity.ActionCommented, recs[0].ActionType)
	assert.Equal(t, testActor, recs[0].UserID)
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Create(env.ctx, CreateInput{TargetID: "t", TargetType: "task"})
	assert.True(t, fault.IsValidation(err), "empty body rejected")

	_, err = env.service.Create(env.ctx, CreateInput{Body: "hi"})
	assert.True(t, fault.IsValidation(err), "missing target rejected")

	_, err = env.service.Create(context.Background(), CreateInput{
		TargetID: "t", TargetType: "task", Body: "hi",
	})
	assert.True(t, fault.IsUnauthenticated(err))
}

func TestUpdate_AuthorOnlyAndMentionsRecomputed(t *testing.T) {
	env := newTestEnv(t)
	aliceID := env.seedUser(t, "alice")
	env.seedUser(t, "bob")

	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "hello @bob",
	})
	require.NoError(t, err)

	err = env.service.Update(env.as("u-stranger"), id, "hijacked", nil)
	assert.True(t, fault.IsUnauthorized(err))
	assert.Equal(t, "hello @bob", env.comment(t, id).Body, "unauthorized edit left no trace")

	require.NoError(t, env.service.Update(env.ctx, id, "hello @alice", nil))
	comment := env.comment(t, id)
	assert.Equal(t, "hello @alice", comment.Body)
	assert.Equal(t, []string{aliceID}, comment.MentionedUserIDs, "mention set follows the new body")
	assert.NotZero(t, comment.UpdatedAt)
}

func TestUpdate_ClearingAllMentionsRemovesField(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice")

	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "cc @alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, env.comment(t, id).MentionedUserIDs)

	require.NoError(t, env.service.Update(env.ctx, id, "no mentions now", nil))

	doc, err := env.store.Get(env.ctx, entity.CollComments, id)
	require.NoError(t, err)
	_, present := doc["mentionedUserIds"]
	assert.False(t, present)
}

func TestDelete_AuthorOnly(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "ephemeral",
	})
	require.NoError(t, err)

	err = env.service.Delete(env.as("u-stranger"), id)
	assert.True(t, fault.IsUnauthorized(err))

	require.NoError(t, env.service.Delete(env.ctx, id))
	_, err = env.store.Get(env.ctx, entity.CollComments, id)
	assert.True(t, fault.IsNotFound(err))
}

func TestListByTarget_CreationOrder(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.service.Create(env.ctx, CreateInput{
		TargetID: "task-1", TargetType: "task", Body: "one",
	})
	require.NoError(t, err)
	second, err := env.service.Create(env.ctx, CreateInput{
		TargetID: "task-1", TargetType: "task", Body: "two",
	})
	require.NoError(t, err)
	_, err = env.service.Create(env.ctx, CreateInput{
		TargetID: "task-2", TargetType: "task", Body: "elsewhere",
	})
	require.NoError(t, err)

	list, err := env.service.ListByTarget(env.ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0].ID)
	assert.Equal(t, second, list[1].ID)
}
