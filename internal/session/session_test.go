package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfs/agentfs/internal/kv"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Config{DataDir: t.TempDir()}, nil)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestOpen_CreatesNamespace(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.Open(ctx, "agent-1")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "agent-1", s.ID())

	// The root directory exists from the start.
	names, err := s.FS().Readdir(ctx, "/")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpen_InvalidIDs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, id := range []string{"", ".", "..", "a/b", "a\\b", "nul\x00"} {
		_, err := m.Open(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidSessionID, "id %q", id)
	}
}

func TestOpen_IdempotentAttach(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s1, err := m.Open(ctx, "agent-1")
	require.NoError(t, err)
	s2, err := m.Open(ctx, "agent-1")
	require.NoError(t, err)

	assert.Same(t, s1, s2, "reopening a live session must attach, not recreate")

	// Closing one handle must not tear down the other.
	require.NoError(t, s1.Close())
	require.NoError(t, s2.KV().Set(ctx, "k", kv.String("v")))
	require.NoError(t, s2.Close())
}

func TestClose_NamespaceSurvives(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{DataDir: dir}, nil)
	defer m.Close()
	ctx := context.Background()

	s, err := m.Open(ctx, "agent-1")
	require.NoError(t, err)

	require.NoError(t, s.FS().Mkdir(ctx, "/documents"))
	require.NoError(t, s.FS().WriteFile(ctx, "/documents/readme.txt", []byte("Hello, World!")))
	require.NoError(t, s.KV().Set(ctx, "count", kv.Int(42)))
	id, err := s.Tools().Start(ctx, "web_search", nil)
	require.NoError(t, err)
	require.NoError(t, s.Tools().Success(ctx, id, nil))
	require.NoError(t, s.Close())

	// Reopen: everything persisted, and the id sequence continues.
	s2, err := m.Open(ctx, "agent-1")
	require.NoError(t, err)
	defer s2.Close()

	content, err := s2.FS().ReadFile(ctx, "/documents/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, World!"), content)

	v, err := s2.KV().Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, kv.Int(42), v)

	id2, err := s2.Tools().Start(ctx, "web_search", nil)
	require.NoError(t, err)
	assert.Greater(t, id2, id, "id sequence must continue after reopen, never reuse")
}

func TestSessions_AreIsolated(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s1, err := m.Open(ctx, "agent-1")
	require.NoError(t, err)
	defer s1.Close()
	s2, err := m.Open(ctx, "agent-2")
	require.NoError(t, err)
	defer s2.Close()

	require.NoError(t, s1.KV().Set(ctx, "secret", kv.String("s1-only")))
	require.NoError(t, s1.FS().WriteFile(ctx, "/file.txt", []byte("s1")))

	_, err = s2.KV().Get(ctx, "secret")
	assert.True(t, kv.IsNotFound(err))

	names, err := s2.FS().Readdir(ctx, "/")
	require.NoError(t, err)
	assert.Empty(t, names)

	// Tool ids are per-session, both start at 1.
	id1, err := s1.Tools().Start(ctx, "t", nil)
	require.NoError(t, err)
	id2, err := s2.Tools().Start(ctx, "t", nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestNewSessionID_Unique(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.NoError(t, validateSessionID(a))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /tmp/agentfs-test\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/agentfs-test", cfg.DataDir)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("data_dir: [\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}
