// Package client is a Go SDK for the SchoolDesk API. It keeps a session
// alive through silent refresh, retries failed requests once after a
// refresh, and exposes typed calls for the planner workflow.
package client

import (
	"sync"
)

// Principal describes the signed-in user as reported by the server.
type Principal struct {
	ID          string `json:"id,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Role        string `json:"role,omitempty"`
	IndexNumber string `json:"index_number,omitempty"`
}

// GuardianLink identifies the student a guardian session is scoped to.
type GuardianLink struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
}

// Session is the client-side authentication state. At most one of User and
// Guardian is set; both nil means signed out.
type Session struct {
	User        *Principal
	Guardian    *GuardianLink
	AccessToken string
	Loading     bool
}

// Authenticated reports whether the session holds a usable access token.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && (s.User != nil || s.Guardian != nil)
}

// Store holds the session and notifies subscribers on every mutation.
// Loading starts true and is flipped false exactly once, after the first
// restore attempt settles.
type Store struct {
	mu          sync.Mutex
	session     Session
	subscribers map[int]func(Session)
	nextSub     int
	settled     bool
}

// NewStore creates a store in the loading state.
func NewStore() *Store {
	return &Store{
		session:     Session{Loading: true},
		subscribers: make(map[int]func(Session)),
	}
}

// Get returns a snapshot of the current session.
func (s *Store) Get() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Set applies a mutation to the session and notifies subscribers.
func (s *Store) Set(mutate func(*Session)) {
	s.mu.Lock()
	mutate(&s.session)
	snapshot := s.session
	subs := make([]func(Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Settle flips Loading to false. Subsequent calls are no-ops so repeated
// refresh attempts cannot re-enter the loading state.
func (s *Store) Settle() {
	s.mu.Lock()
	if s.settled {
		s.mu.Unlock()
		return
	}
	s.settled = true
	s.mu.Unlock()

	s.Set(func(sess *Session) {
		sess.Loading = false
	})
}

// Subscribe registers a callback invoked on every session change. The
// returned cancel func removes the subscription.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
