package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// golden lists the scenarios whose activity traces are pinned by golden
// files in addition to their inline assertions.
var golden = map[string]bool{
	"task_lifecycle":   true,
	"comment_mentions": true,
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			defer result.Close()

			require.NoError(t, result.AssertAll(scenario.Assertions))

			if golden[scenario.Name] {
				require.NoError(t, AssertGolden(t, scenario.Name, result))
			}
		})
	}
}

func TestRun_UnknownReferenceFails(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "bad-ref",
		Description: "references a step that never ran",
		Flow: []Step{
			{Op: "delete_task", Args: map[string]any{"task": "$nope"}},
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown reference")
}

func TestRun_ExpectedErrorMismatchFails(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "wrong-kind",
		Description: "declares the wrong fault kind",
		Flow: []Step{
			{Op: "delete_task", Args: map[string]any{"task": "ghost"}, ExpectError: "VALIDATION"},
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected VALIDATION")
}
