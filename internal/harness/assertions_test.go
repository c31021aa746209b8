package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crewdeck/internal/entity"
)

func TestAssertActivityOrder_Subsequence(t *testing.T) {
	r := &Result{
		refs: map[string]string{"t1": "task-1"},
		Feed: []entity.ActivityRecord{
			{TargetID: "task-1", ActionType: "Created Task"},
			{TargetID: "task-2", ActionType: "Created Task"},
			{TargetID: "task-1", ActionType: "Updated Task"},
			{TargetID: "task-1", ActionType: "Updated Task"},
			{TargetID: "task-1", ActionType: "Deleted Task"},
		},
	}

	require.NoError(t, r.Assert(Assertion{
		Type:    AssertActivityOrder,
		Target:  "$t1",
		Actions: []string{"Created Task", "Updated Task", "Deleted Task"},
	}))

	err := r.Assert(Assertion{
		Type:    AssertActivityOrder,
		Target:  "$t1",
		Actions: []string{"Deleted Task", "Created Task"},
	})
	assert.Error(t, err)
}

func TestAssertActivityCount_FiltersByTarget(t *testing.T) {
	r := &Result{
		refs: map[string]string{"t1": "task-1"},
		Feed: []entity.ActivityRecord{
			{TargetID: "task-1", ActionType: "Updated Task"},
			{TargetID: "task-2", ActionType: "Updated Task"},
		},
	}

	require.NoError(t, r.Assert(Assertion{
		Type:   AssertActivityCount,
		Action: "Updated Task",
		Count:  2,
	}))
	require.NoError(t, r.Assert(Assertion{
		Type:   AssertActivityCount,
		Action: "Updated Task",
		Target: "$t1",
		Count:  1,
	}))
}

func TestLooseEqual(t *testing.T) {
	assert.True(t, looseEqual(50, float64(50)), "yaml int matches json float")
	assert.True(t, looseEqual("completed", "completed"))
	assert.False(t, looseEqual(50, float64(51)))
	assert.False(t, looseEqual(50, "50"))
}
