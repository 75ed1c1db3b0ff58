// Package session keeps short-lived conversation sessions in memory and
// reclaims idle ones in the background.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/log"
)

const maxIDAttempts = 3

type EvictReason string

const (
	EvictCleared EvictReason = "cleared"
	EvictExpired EvictReason = "expired"
)

// EvictFunc is called after a session has left the store. It runs outside
// the store's locks.
type EvictFunc func(ctx context.Context, sessionID string, reason EvictReason)

// Session is a handle to one live conversation. All accessors are safe for
// concurrent use; appends on the same session are serialized.
type Session struct {
	id string

	mu           sync.Mutex
	createdAt    time.Time
	lastActivity time.Time
	document     string
	hasSeed      bool
	window       *Window
	evicted      bool
	now          func() time.Time
}

func (s *Session) ID() string {
	return s.id
}

// Append adds a turn to the window and refreshes last activity.
func (s *Session) Append(role, text string) error {
	if !core.IsValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", core.ErrValidation, role)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty turn text", core.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return core.ErrSessionExpired
	}

	now := s.now()
	s.window.Append(core.Turn{Role: role, Content: text, Timestamp: now})
	s.touchLocked(now)
	return nil
}

func (s *Session) Turns() []core.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Turns()
}

func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetDocument replaces the working letter, e.g. after an edit.
func (s *Session) SetDocument(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return core.ErrSessionExpired
	}
	s.document = text
	s.touchLocked(s.now())
	return nil
}

func (s *Session) Info() core.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return core.SessionInfo{
		ID:                 s.id,
		CreatedAt:          s.createdAt,
		LastActivity:       s.lastActivity,
		ConversationLength: s.window.Len(),
		HasOriginalLetter:  s.hasSeed,
	}
}

func (s *Session) touchLocked(now time.Time) {
	// keep LastActivity >= CreatedAt even if the clock steps back
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
}

// Store is a concurrent map of live sessions.
type Store struct {
	// Now is the clock used for timestamps and idleness checks.
	Now func() time.Time

	newID func() (uuid.UUID, error)

	windowPairs int

	mu       sync.RWMutex
	sessions map[string]*Session
	hooks    []EvictFunc
}

func NewStore(windowPairs int) *Store {
	if windowPairs <= 0 {
		windowPairs = DefaultWindowPairs
	}
	return &Store{
		Now:         time.Now,
		newID:       uuid.NewRandom,
		windowPairs: windowPairs,
		sessions:    make(map[string]*Session),
	}
}

// OnEvict registers fn to run whenever a session is deleted or expires.
func (st *Store) OnEvict(fn EvictFunc) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.hooks = append(st.hooks, fn)
}

// Create allocates a session, optionally seeded with a letter, and returns its id.
func (st *Store) Create(seed string) (string, error) {
	now := st.clock()
	s := &Session{
		createdAt:    now,
		lastActivity: now,
		document:     seed,
		hasSeed:      seed != "",
		window:       NewWindow(st.windowPairs),
		now:          st.clock,
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := st.newID()
		if err != nil {
			lastErr = err
			continue
		}
		if _, taken := st.sessions[id.String()]; taken {
			lastErr = fmt.Errorf("id %s already in use", id)
			continue
		}
		s.id = id.String()
		st.sessions[s.id] = s
		return s.id, nil
	}
	return "", fmt.Errorf("%w: %v", core.ErrIDExhausted, lastErr)
}

// Alive reports whether id names a live session.
func (st *Store) Alive(id string) bool {
	_, ok := st.get(id)
	return ok
}

// TouchAndGet refreshes the session's last activity and returns it.
// Unknown and evicted ids both yield core.ErrSessionExpired.
func (st *Store) TouchAndGet(id string) (*Session, error) {
	s, ok := st.get(id)
	if !ok {
		return nil, core.ErrSessionExpired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return nil, core.ErrSessionExpired
	}
	s.touchLocked(st.clock())
	return s, nil
}

func (st *Store) AppendTurn(id, role, text string) error {
	s, ok := st.get(id)
	if !ok {
		return core.ErrSessionExpired
	}
	return s.Append(role, text)
}

func (st *Store) Info(id string) (core.SessionInfo, error) {
	s, ok := st.get(id)
	if !ok {
		return core.SessionInfo{}, core.ErrSessionNotFound
	}
	return s.Info(), nil
}

// History returns a copy of the session's window without touching it.
func (st *Store) History(id string) ([]core.Turn, error) {
	s, ok := st.get(id)
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s.Turns(), nil
}

// Document returns the session's current letter without touching it.
func (st *Store) Document(id string) (string, error) {
	s, ok := st.get(id)
	if !ok {
		return "", core.ErrSessionNotFound
	}
	return s.Document(), nil
}

// Delete removes the session. Deleting an absent id is a no-op.
func (st *Store) Delete(ctx context.Context, id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
		s.mu.Lock()
		s.evicted = true
		s.mu.Unlock()
	}
	hooks := st.hooks
	st.mu.Unlock()

	if !ok {
		return
	}

	log.FromCtx(ctx).Debug().Str("session_id", id).Msg("session cleared")
	st.fire(ctx, hooks, id, EvictCleared)
}

func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ids snapshots the current id set.
func (st *Store) ids() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	return ids
}

// expire evicts the session if it has been idle longer than timeout at now.
// Idleness is re-checked under the write lock so a concurrent touch wins.
func (st *Store) expire(ctx context.Context, id string, now time.Time, timeout time.Duration) bool {
	s, ok := st.get(id)
	if !ok || !s.idle(now, timeout) {
		return false
	}

	st.mu.Lock()
	if st.sessions[id] != s {
		st.mu.Unlock()
		return false
	}
	s.mu.Lock()
	if now.Sub(s.lastActivity) <= timeout {
		s.mu.Unlock()
		st.mu.Unlock()
		return false
	}
	s.evicted = true
	s.mu.Unlock()
	delete(st.sessions, id)
	hooks := st.hooks
	st.mu.Unlock()

	st.fire(ctx, hooks, id, EvictExpired)
	return true
}

func (st *Store) clock() time.Time {
	return st.Now()
}

func (st *Store) get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) fire(ctx context.Context, hooks []EvictFunc, id string, reason EvictReason) {
	for _, fn := range hooks {
		fn(ctx, id, reason)
	}
}

func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity) > timeout
}
