package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "crewdeck", cmd.Use)
	assert.Contains(t, cmd.Long, "workspace")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "seed", "project", "task", "comment", "activity"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "crewdeck.db", dbFlag.DefValue)

	actorFlag := cmd.PersistentFlags().Lookup("actor")
	require.NotNil(t, actorFlag)
	assert.Equal(t, "", actorFlag.DefValue)
}

func TestTaskCreateFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"task", "create"})
	require.NoError(t, err)

	projectFlag := createCmd.Flags().Lookup("project")
	require.NotNil(t, projectFlag)

	subtaskFlag := createCmd.Flags().Lookup("subtask")
	require.NotNil(t, subtaskFlag)
}

func TestCommentAddFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"comment", "add"})
	require.NoError(t, err)

	typeFlag := addCmd.Flags().Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "task", typeFlag.DefValue)

	mentionFlag := addCmd.Flags().Lookup("mention")
	require.NotNil(t, mentionFlag)

	replyFlag := addCmd.Flags().Lookup("reply-to")
	require.NotNil(t, replyFlag)
}

func TestActivityFlags(t *testing.T) {
	cmd := NewRootCommand()
	actCmd, _, err := cmd.Find([]string{"activity"})
	require.NoError(t, err)

	userFlag := actCmd.Flags().Lookup("user")
	require.NotNil(t, userFlag)
	assert.Equal(t, "false", userFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "init"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
