// Package session owns the lifecycle of isolated per-agent namespaces.
//
// Each session is one record store (one SQLite file) plus the three views
// over it. Isolation is structural: a session handle cannot name another
// session's data because it holds a different store. Closing a handle
// releases in-memory resources only; the persisted namespace survives and a
// later Open of the same id attaches to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agentfs/agentfs/internal/clock"
	"github.com/agentfs/agentfs/internal/fs"
	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/record"
	"github.com/agentfs/agentfs/internal/tools"
)

// ErrInvalidSessionID reports a session id that cannot name a namespace.
var ErrInvalidSessionID = errors.New("invalid session id")

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// validateSessionID rejects ids that are empty or could escape the data
// directory. The id becomes a file name, so path syntax is forbidden.
func validateSessionID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

// Manager opens and tracks live sessions.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	clock  clock.Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager using the wall clock.
// A nil logger means slog.Default().
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	return NewManagerWithClock(cfg, logger, clock.Wall{})
}

// NewManagerWithClock creates a session manager with an explicit clock.
// Tests use this to pin timestamps.
func NewManagerWithClock(cfg Config, logger *slog.Logger, clk clock.Clock) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		clock:    clk,
		sessions: make(map[string]*Session),
	}
}

// Open returns a handle to the session's namespace, creating it on first
// use. Open is idempotent: a second Open of a live id returns the same
// handle (reference counted), and an Open after the last Close reattaches to
// the persisted namespace.
func (m *Manager) Open(ctx context.Context, sessionID string) (*Session, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		s.refs++
		return s, nil
	}

	if err := os.MkdirAll(m.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(m.cfg.DataDir, sessionID+".db")
	store, err := record.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session %q: %w", sessionID, err)
	}

	fsView := fs.New(store, m.clock)
	if err := fsView.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init session %q: %w", sessionID, err)
	}

	s := &Session{
		id:      sessionID,
		manager: m,
		store:   store,
		fs:      fsView,
		kv:      kv.New(store),
		tools:   tools.New(store, m.clock),
		refs:    1,
	}
	m.sessions[sessionID] = s

	m.logger.Debug("session opened", "session_id", sessionID, "path", path)
	return s, nil
}

// Close force-closes every live session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, s := range m.sessions {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close session %q: %w", id, err)
		}
		delete(m.sessions, id)
	}
	return firstErr
}

// Session is the sole entry point to one namespace's views.
type Session struct {
	id      string
	manager *Manager
	store   *record.Store

	fs    *fs.FS
	kv    *kv.KV
	tools *tools.Ledger

	refs int // guarded by manager.mu
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// FS returns the filesystem view.
func (s *Session) FS() *fs.FS {
	return s.fs
}

// KV returns the key-value view.
func (s *Session) KV() *kv.KV {
	return s.kv
}

// Tools returns the tool-call ledger.
func (s *Session) Tools() *tools.Ledger {
	return s.tools
}

// Close releases this handle. The underlying store closes when the last
// handle is released; the persisted namespace survives.
func (s *Session) Close() error {
	m := s.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	s.refs--
	if s.refs > 0 {
		return nil
	}

	delete(m.sessions, s.id)
	m.logger.Debug("session closed", "session_id", s.id)
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close session %q: %w", s.id, err)
	}
	return nil
}
