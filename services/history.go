package services

import (
	"sync"

	"hotline/models"
)

// SessionStore keeps per-session conversation history. Implementations must
// be safe for concurrent use; Append calls for one exchange (user turn then
// assistant turn) happen under a single external critical section so turn
// order is never interleaved.
type SessionStore interface {
	// Append adds one turn to the session, creating the session if needed.
	Append(sessionID, role, content string)
	// AppendExchange adds a completed (user, assistant) exchange atomically.
	AppendExchange(sessionID, question, answer string)
	// History returns a copy of the session's full turn list.
	History(sessionID string) []models.ChatMessage
	// Clear empties the session's history. Returns false if the session was
	// never seen. The session itself is kept, not deleted.
	Clear(sessionID string) bool
}

// MemorySessionStore is the in-process SessionStore. Sessions are never
// evicted; the map grows for the lifetime of the process.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]models.ChatMessage
}

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string][]models.ChatMessage),
	}
}

// Append adds one turn to the session's history.
func (s *MemorySessionStore) Append(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], models.ChatMessage{Role: role, Content: content})
}

// AppendExchange adds the user question and assistant answer as one atomic
// pair, so concurrent requests on the same session cannot interleave turns.
func (s *MemorySessionStore) AppendExchange(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID],
		models.ChatMessage{Role: models.RoleUser, Content: question},
		models.ChatMessage{Role: models.RoleAssistant, Content: answer},
	)
}

// History returns a copy of the session's turns in insertion order.
func (s *MemorySessionStore) History(sessionID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.sessions[sessionID]
	out := make([]models.ChatMessage, len(history))
	copy(out, history)
	return out
}

// Clear empties the session's history without deleting the session entry.
func (s *MemorySessionStore) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	s.sessions[sessionID] = nil
	return true
}

// Window produces the bounded, alternation-valid slice of a history that is
// safe to feed to the generator. It takes at most maxTurns trailing entries,
// drops a leading assistant turn left by the cut, then keeps only complete
// (user, assistant) pairs in that order. A malformed or unpaired tail is
// discarded rather than partially included.
func Window(history []models.ChatMessage, maxTurns int) []models.ChatMessage {
	if maxTurns <= 0 {
		maxTurns = 10
	}

	recent := history
	if len(recent) > maxTurns {
		recent = recent[len(recent)-maxTurns:]
	}

	// The cut may have landed mid-pair
	if len(recent) > 0 && recent[0].Role == models.RoleAssistant {
		recent = recent[1:]
	}

	var pairs []models.ChatMessage
	for i := 0; i+1 < len(recent); i += 2 {
		if recent[i].Role == models.RoleUser && recent[i+1].Role == models.RoleAssistant {
			pairs = append(pairs, recent[i], recent[i+1])
		}
	}
	return pairs
}
