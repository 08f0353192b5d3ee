package session

import (
	"fmt"
	"sync"
	"time"
)

const maxMessages = 20

// FollowUpWindow bounds how long a prior email-tool exchange can anchor a
// short confirmation reply ("send it", "improve it").
const FollowUpWindow = 5 * time.Minute

// Message is a single turn kept in the in-process session buffer.
type Message struct {
	Role    string
	Content string
	Time    time.Time
}

// EmailContext captures the last email-tool exchange so a short follow-up can
// be bound to it without replaying the whole dialogue in the prompt.
type EmailContext struct {
	Request  string
	Response string
	ToolUsed string
	At       time.Time
}

// Session is the per-user short-term buffer. Advisory context only, never
// correctness-critical state. mu guards Messages, EmailContext and LastUsed;
// concurrent requests from the same user share one Session.
type Session struct {
	UserID       string
	Messages     []Message
	EmailContext *EmailContext
	LastUsed     time.Time

	mu sync.Mutex
}

// AddTurn appends a user/assistant exchange, trimming to the message cap.
func (s *Session) AddTurn(userMessage, agentResponse string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.Messages = append(s.Messages,
		Message{Role: "Human", Content: userMessage, Time: now},
		Message{Role: "AI", Content: agentResponse, Time: now},
	)
	if len(s.Messages) > maxMessages {
		s.Messages = s.Messages[len(s.Messages)-maxMessages:]
	}
	s.LastUsed = now
}

// History renders the buffered turns for prompt inclusion.
func (s *Session) History() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out string
	for _, msg := range s.Messages {
		out += fmt.Sprintf("%s: %s\n", msg.Role, msg.Content)
	}
	return out
}

// Len reports the number of buffered messages.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Messages)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.LastUsed = now
	s.mu.Unlock()
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastUsed
}

// Store manages per-user sessions with TTL eviction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	stopCh   chan struct{}
}

// NewStore creates a session store with a default 30 minute TTL.
func NewStore() *Store {
	return NewStoreWithTTL(30 * time.Minute)
}

func NewStoreWithTTL(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// GetOrCreate returns the user's session, creating it if absent.
func (s *Store) GetOrCreate(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[userID]; ok {
		session.touch(time.Now())
		return session
	}

	session := &Session{UserID: userID, LastUsed: time.Now()}
	s.sessions[userID] = session
	return session
}

// Clear discards the user's session buffer. Persisted history is unaffected.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// SetEmailContext records the last email-tool exchange for follow-up binding.
func (s *Store) SetEmailContext(userID, request, response, toolUsed string) {
	session := s.GetOrCreate(userID)
	session.mu.Lock()
	defer session.mu.Unlock()
	session.EmailContext = &EmailContext{
		Request:  request,
		Response: response,
		ToolUsed: toolUsed,
		At:       time.Now(),
	}
}

// RecentEmailContext returns the stored email context if it is still inside
// the follow-up window; stale context is discarded.
func (s *Store) RecentEmailContext(userID string) *EmailContext {
	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.EmailContext == nil {
		return nil
	}
	if time.Since(session.EmailContext.At) > FollowUpWindow {
		session.EmailContext = nil
		return nil
	}
	return session.EmailContext
}

// Stop terminates the background cleanup loop.
func (s *Store) Stop() {
	close(s.stopCh)
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictStale()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) evictStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for userID, session := range s.sessions {
		if session.lastUsed().Before(cutoff) {
			delete(s.sessions, userID)
		}
	}
}
