package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// traceEvent is one activity in a golden trace. Document ids are omitted
// so traces stay readable; sequence position pins the order.
type traceEvent struct {
	Seq         int    `json:"seq"`
	UserID      string `json:"userId"`
	ActionType  string `json:"actionType"`
	TargetType  string `json:"targetType,omitempty"`
	Description string `json:"description"`
}

type traceSnapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []traceEvent `json:"trace"`
}

// AssertGolden compares the run's activity feed against the scenario's
// golden file under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, scenarioName string, r *Result) error {
	t.Helper()

	snapshot := traceSnapshot{Scenario: scenarioName}
	for i, rec := range r.Feed {
		snapshot.Trace = append(snapshot.Trace, traceEvent{
			Seq:         i,
			UserID:      rec.UserID,
			ActionType:  rec.ActionType,
			TargetType:  rec.TargetType,
			Description: rec.Description,
		})
	}

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace snapshot: %w", err)
	}
	raw = append(raw, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, raw)
	return nil
}
