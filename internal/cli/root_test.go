package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pulsedeck", cmd.Use)
	assert.Contains(t, cmd.Long, "playlists")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "inspect", "run", "results", "replay"}

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
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outFlag := compileCmd.Flags().Lookup("out")
	require.NotNil(t, outFlag)
	assert.Equal(t, "o", outFlag.Shorthand)
}

func TestValidateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	validateCmd, _, err := cmd.Find([]string{"validate"})
	require.NoError(t, err)

	parallelFlag := validateCmd.Flags().Lookup("parallel")
	require.NotNil(t, parallelFlag)
	assert.Equal(t, "0", parallelFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	budgetFlag := runCmd.Flags().Lookup("budget")
	require.NotNil(t, budgetFlag)
	assert.Equal(t, "0", budgetFlag.DefValue)

	nameFlag := runCmd.Flags().Lookup("name")
	require.NotNil(t, nameFlag)
	assert.Equal(t, "", nameFlag.DefValue)
}

func TestResultsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	resultsCmd, _, err := cmd.Find([]string{"results"})
	require.NoError(t, err)

	digestFlag := resultsCmd.Flags().Lookup("digest")
	require.NotNil(t, digestFlag)
	assert.Equal(t, "", digestFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "xml", "inspect", "nope.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(false)
	require.NoError(t, err)
	require.NotNil(t, logger)

	verbose, err := newLogger(true)
	require.NoError(t, err)
	require.NotNil(t, verbose)
	assert.True(t, verbose.Core().Enabled(zap.DebugLevel), "verbose logger should enable debug")
	assert.False(t, logger.Core().Enabled(zap.DebugLevel), "default logger should not enable debug")
}
