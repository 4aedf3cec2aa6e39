package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_FilesystemBasics(t *testing.T) {
	RunWithGolden(t, "testdata/scenarios/filesystem_basics.yaml")
}

func TestScenario_KVRoundTrip(t *testing.T) {
	RunWithGolden(t, "testdata/scenarios/kv_roundtrip.yaml")
}

func TestScenario_ToolLedger(t *testing.T) {
	RunWithGolden(t, "testdata/scenarios/tool_ledger.yaml")
}

func TestLoadScenario_Validation(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadScenario(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("steps:\n  - op: tools.stats\n"), 0o644))
	_, err = LoadScenario(unnamed)
	assert.ErrorContains(t, err, "name is required")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("name: empty\n"), 0o644))
	_, err = LoadScenario(empty)
	assert.ErrorContains(t, err, "at least one step")
}

func TestRun_UnexpectedErrorAborts(t *testing.T) {
	s := &Scenario{
		Name: "abort",
		Steps: []Step{
			{Op: "fs.read", Path: "/missing"},
		},
	}
	_, err := Run(s, t.TempDir())
	assert.ErrorContains(t, err, "unexpected error")
}

func TestRun_WrongErrorCodeAborts(t *testing.T) {
	s := &Scenario{
		Name: "mismatch",
		Steps: []Step{
			{Op: "fs.read", Path: "/missing", ExpectError: "IS_A_DIRECTORY"},
		},
	}
	_, err := Run(s, t.TempDir())
	assert.ErrorContains(t, err, "want IS_A_DIRECTORY")
}

func TestRun_UnexpectedSuccessAborts(t *testing.T) {
	s := &Scenario{
		Name: "surprise",
		Steps: []Step{
			{Op: "fs.mkdir", Path: "/d", ExpectError: "NOT_FOUND"},
		},
	}
	_, err := Run(s, t.TempDir())
	assert.ErrorContains(t, err, "succeeded")
}

func TestRun_UnknownOp(t *testing.T) {
	s := &Scenario{
		Name: "unknown",
		Steps: []Step{
			{Op: "fs.teleport", Path: "/d"},
		},
	}
	_, err := Run(s, t.TempDir())
	assert.ErrorContains(t, err, "unknown op")
}
