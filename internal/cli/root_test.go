package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfs/agentfs/internal/kv"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "agentfs", cmd.Use)
	assert.Contains(t, cmd.Long, "tool-call ledger")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"fs", "kv", "tools"}

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

	sessionFlag := cmd.PersistentFlags().Lookup("session")
	require.NotNil(t, sessionFlag)
	assert.Equal(t, "s", sessionFlag.Shorthand)
	assert.Equal(t, "default", sessionFlag.DefValue)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestConfigPrecedence(t *testing.T) {
	opts := &RootOptions{DataDir: "/tmp/agentfs-data"}
	cfg, err := opts.config()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/agentfs-data", cfg.DataDir)

	opts = &RootOptions{}
	cfg, err = opts.config()
	require.NoError(t, err)
	assert.Equal(t, ".agentfs", cfg.DataDir)
}

func TestParseValue(t *testing.T) {
	v, err := parseValue("hello", "string")
	require.NoError(t, err)
	assert.Equal(t, kv.String("hello"), v)

	v, err = parseValue("42", "int")
	require.NoError(t, err)
	assert.Equal(t, kv.Int(42), v)

	v, err = parseValue("true", "bool")
	require.NoError(t, err)
	assert.Equal(t, kv.Bool(true), v)

	v, err = parseValue(`{"n":1}`, "json")
	require.NoError(t, err)
	obj, ok := v.(kv.Object)
	require.True(t, ok)
	assert.Equal(t, json.Number("1"), obj["n"])
}

func TestParseValueRejectsBadInput(t *testing.T) {
	_, err := parseValue("not-a-number", "int")
	assert.Error(t, err)

	_, err = parseValue("maybe", "bool")
	assert.Error(t, err)

	_, err = parseValue("[1,2]", "json")
	assert.Error(t, err)

	_, err = parseValue("x", "float")
	assert.Error(t, err)
}

func TestParsePayload(t *testing.T) {
	m, err := parsePayload([]string{"tool"}, 1)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = parsePayload([]string{"tool", `{"count":3}`}, 1)
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), m["count"])

	_, err = parsePayload([]string{"tool", "not json"}, 1)
	assert.Error(t, err)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "kv", "keys"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
