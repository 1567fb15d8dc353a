// Package session implements the observable session state and the auth
// session manager that owns every mutation of it.
//
// The session is a single process-wide value with application lifetime.
// All mutation goes through the Manager; guards, the request
// authenticator and UI code read it through snapshots or subscriptions
// and never wait on in-flight requests.
package session

import (
	"sync"

	portal "github.com/carelink/portal-go"
)

// Session is the observable session state. Snapshots are synchronous and
// never block; subscriptions emit on change with latest-value semantics.
type Session struct {
	mu    sync.RWMutex
	state portal.SessionState
	subs  map[int]chan portal.SessionState
	next  int
}

// compile-time check
var _ portal.SessionReader = (*Session)(nil)

// NewSession creates a logged-out session.
func NewSession() *Session {
	return &Session{subs: make(map[int]chan portal.SessionState)}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() portal.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel of state snapshots and a cancel function.
// The channel has latest-value semantics: a slow consumer sees the most
// recent state, not every intermediate one. Cancel closes the channel.
func (s *Session) Subscribe() (<-chan portal.SessionState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan portal.SessionState, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// set replaces the state atomically and notifies subscribers if the state
// observably changed.
func (s *Session) set(next portal.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Equal(next) {
		return
	}
	s.state = next
	s.emit(next)
}

// mutate applies fn to a copy of the state and commits the result as one
// atomic step. Observers never see the intermediate value.
func (s *Session) mutate(fn func(*portal.SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	if next.Identity != nil {
		id := *next.Identity
		next.Identity = &id
	}
	fn(&next)

	if s.state.Equal(next) {
		return
	}
	s.state = next
	s.emit(next)
}

// emit pushes the state to every subscriber without blocking, replacing
// any undelivered older snapshot. Callers hold s.mu.
func (s *Session) emit(state portal.SessionState) {
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
