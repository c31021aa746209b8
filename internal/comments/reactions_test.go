package comments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crewdeck/internal/entity"
	"github.com/roach88/crewdeck/internal/fault"
)

func (env *testEnv) seedComment(t *testing.T) string {
	t.Helper()
	id, err := env.service.Create(env.ctx, CreateInput{
		TargetID:   "task-1",
		TargetType: "task",
		Body:       "react to this",
	})
	require.NoError(t, err)
	return id
}

func TestReactions_AddRemoveDropsKey(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedComment(t)
	u1 := env.as("u-1")

	require.NoError(t, env.service.AddReaction(u1, id, entity.ReactionHeart))
	require.NoError(t, env.service.RemoveReaction(u1, id, entity.ReactionHeart))

	doc, err := env.store.Get(env.ctx, entity.CollComments, id)
	require.NoError(t, err)
	reactions, present := doc["reactions"]
	if present {
		m, ok := reactions.(map[string]any)
		require.True(t, ok)
		_, hasHeart := m["heart"]
		assert.False(t, hasHeart, "retracted kind has no key, not an empty list")
	}
}

func TestReactions_AddIsIdempotentPerUser(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedComment(t)
	u1 := env.as("u-1")
	u2 := env.as("u-2")

	require.NoError(t, env.service.AddReaction(u1, id, entity.ReactionHeart))
	require.NoError(t, env.service.AddReaction(u1, id, entity.ReactionHeart))
	require.NoError(t, env.service.AddReaction(u2, id, entity.ReactionHeart))

	comment := env.comment(t, id)
	assert.Equal(t, []string{"u-1", "u-2"}, comment.Reactions[entity.ReactionHeart])
}

func TestReactions_RemoveKeepsOtherReactors(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedComment(t)
	u1 := env.as("u-1")
	u2 := env.as("u-2")

	require.NoError(t, env.service.AddReaction(u1, id, entity.ReactionThumbsUp))
	require.NoError(t, env.service.AddReaction(u2, id, entity.ReactionThumbsUp))
	require.NoError(t, env.service.AddReaction(u1, id, entity.ReactionHeart))

	require.NoError(t, env.service.RemoveReaction(u1, id, entity.ReactionThumbsUp))

	comment := env.comment(t, id)
	assert.Equal(t, []string{"u-2"}, comment.Reactions[entity.ReactionThumbsUp])
	assert.Equal(t, []string{"u-1"}, comment.Reactions[entity.ReactionHeart])
}

func TestReactions_RemoveNonReactorIsNoop(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedComment(t)

	require.NoError(t, env.service.RemoveReaction(env.as("u-1"), id, entity.ReactionHeart))
	assert.Empty(t, env.comment(t, id).Reactions)
}

func TestReactions_InvalidKind(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedComment(t)

	assert.True(t, fault.IsValidation(env.service.AddReaction(env.ctx, id, "clap")))
	assert.True(t, fault.IsValidation(env.service.RemoveReaction(env.ctx, id, "clap")))
}

func TestReactions_MissingComment(t *testing.T) {
	env := newTestEnv(t)
	assert.True(t, fault.IsNotFound(env.service.AddReaction(env.ctx, "ghost", entity.ReactionHeart)))
}
