package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTaskStatus(t *testing.T) {
	for _, s := range []string{StatusTodo, StatusInProgress, StatusCompleted, StatusOnHold, StatusCanceled} {
		assert.True(t, ValidTaskStatus(s), s)
	}
	assert.False(t, ValidTaskStatus(StatusPlanned), "planned is project-only")
	assert.False(t, ValidTaskStatus("done"))
	assert.False(t, ValidTaskStatus(""))
}

func TestValidProjectStatus(t *testing.T) {
	for _, s := range []string{StatusPlanned, StatusInProgress, StatusCompleted, StatusOnHold, StatusCanceled} {
		assert.True(t, ValidProjectStatus(s), s)
	}
	assert.False(t, ValidProjectStatus(StatusTodo), "todo is task-only")
}

func TestValidReactionKind(t *testing.T) {
	assert.True(t, ValidReactionKind(ReactionHeart))
	assert.True(t, ValidReactionKind(ReactionThumbsUp))
	assert.True(t, ValidReactionKind(ReactionThumbsDown))
	assert.False(t, ValidReactionKind("smile"))
	assert.False(t, ValidReactionKind(""))
}
