// Package session keeps one chat history per browser session for the web
// widget. Sessions live only in process memory and disappear on restart or
// after sitting idle.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/apoteker/pkg/chat"
)

// ErrBusy is returned by Exchange when the session already has a request in
// flight.
var ErrBusy = errors.New("a reply is still being generated for this session")

// Session is the per-session context object: it owns a chat.History
// exclusively and admits one outstanding request at a time.
type Session struct {
	ID string

	mu       sync.Mutex
	history  *chat.History
	busy     bool
	lastSeen time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:       id,
		history:  chat.NewHistory(),
		lastSeen: now,
	}
}

// Exchange runs chat.Exchange against the session's history. Only one
// exchange may be in flight per session; a concurrent call gets ErrBusy.
//
// The session lock is held while the history is read or appended to and
// released while waiting on sender, so Turns stays responsive.
func (s *Session) Exchange(ctx context.Context, sender chat.Sender, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return "", ErrBusy
	}
	s.busy = true
	defer func() { s.busy = false }()

	unlocked := chat.SenderFunc(func(ctx context.Context, prior []chat.Turn, text string) (string, error) {
		s.mu.Unlock()
		defer s.mu.Lock()
		return sender.Send(ctx, prior, text)
	})

	return chat.Exchange(ctx, s.history, unlocked, text)
}

// Turns returns a snapshot of the session's history. While an exchange is in
// flight the snapshot already holds the pending user turn.
func (s *Session) Turns() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.history.All()
}

// Busy reports whether a request is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.busy
}

// Store maps session IDs to sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	// now is swapped in tests.
	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, creating a freshly seeded one when
// id is empty or unknown. The returned session's ID may differ from id.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if s, ok := st.sessions[id]; ok && id != "" {
		s.mu.Lock()
		s.lastSeen = now
		s.mu.Unlock()
		return s, false
	}

	s := newSession(uuid.NewString(), now)
	st.sessions[s.ID] = s
	return s, true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// Sweep removes sessions that have been idle for longer than idle and are
// not serving a request. It returns the number removed.
func (st *Store) Sweep(idle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-idle)
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		expired := !s.busy && s.lastSeen.Before(cutoff)
		s.mu.Unlock()

		if expired {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
