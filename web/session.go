// ABOUTME: In-memory console session store with TTL cleanup and capacity limits.
// ABOUTME: Each browser session owns one console; evicted sessions have their console closed.
package web

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/agentdeck/console"
)

// Session is one browser's console.
type Session struct {
	ID         string
	Console    *console.Console
	CreatedAt  time.Time
	LastAccess time.Time
}

// SessionStore holds sessions keyed by cookie value.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	newConsole  func() (*console.Console, error)
	now         func() time.Time
}

// NewSessionStore creates a store that builds consoles with newConsole.
func NewSessionStore(maxSessions int, ttl time.Duration, newConsole func() (*console.Console, error)) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		newConsole:  newConsole,
		now:         time.Now,
	}
}

// Create starts a new session, evicting the least recently used one when
// the store is full.
func (s *SessionStore) Create() (*Session, error) {
	c, err := s.newConsole()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var evicted *Session
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		for _, sess := range s.sessions {
			if evicted == nil || sess.LastAccess.Before(evicted.LastAccess) {
				evicted = sess
			}
		}
		delete(s.sessions, evicted.ID)
	}
	now := s.now()
	sess := &Session{
		ID:         uuid.New().String(),
		Console:    c,
		CreatedAt:  now,
		LastAccess: now,
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if evicted != nil {
		log.Printf("component=web.sessions action=evict session=%s reason=capacity", evicted.ID)
		go evicted.Console.Close()
	}
	return sess, nil
}

// Get retrieves a session by ID and updates its LastAccess time.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.LastAccess = s.now()
	return sess, true
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle for longer than the TTL and closes their consoles.
func (s *SessionStore) Cleanup() {
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		log.Printf("component=web.sessions action=evict session=%s reason=ttl", sess.ID)
		sess.Console.Close()
	}
}

// StartCleanup starts a background cleanup goroutine and returns a stop function.
func (s *SessionStore) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// Close closes every session's console and empties the store.
func (s *SessionStore) Close() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Console.Close()
	}
}
