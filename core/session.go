package core

import (
	"sync"
	"time"
)

// ConversationSession tracks one conversation: a bounded ordered turn
// history plus the entity map. It is safe for concurrent access.
//
// Contract:
//   - AddTurn truncates history to the configured maximum and refreshes
//     LastActive
//   - Recent returns a defensive copy
//   - Clone performs deep copies of turns and entities for safe divergence
type ConversationSession struct {
	ID         string    `json:"id"`
	Turns      []Turn    `json:"turns"`
	Entities   EntityMap `json:"entities"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"last_active"`

	mu sync.RWMutex
}

// NewConversationSession creates an empty session.
func NewConversationSession(id string) *ConversationSession {
	now := time.Now().UTC()
	return &ConversationSession{ID: id, Created: now, LastActive: now}
}

// AddTurn appends a turn, truncating to maxTurns (0 means unbounded), and
// refreshes the activity timestamp.
func (s *ConversationSession) AddTurn(t Turn, maxTurns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Turns = append(s.Turns, t)
	if maxTurns > 0 && len(s.Turns) > maxTurns {
		s.Turns = append([]Turn(nil), s.Turns[len(s.Turns)-maxTurns:]...)
	}
	s.LastActive = time.Now().UTC()
}

// Recent returns a copy of the last k turns (all turns when k <= 0).
func (s *ConversationSession) Recent(k int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.Turns)
	if k <= 0 || k > n {
		k = n
	}
	out := make([]Turn, k)
	copy(out, s.Turns[n-k:])
	return out
}

// TurnCount returns the current history length.
func (s *ConversationSession) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Turns)
}

// GetEntities returns a deep copy of the entity map.
func (s *ConversationSession) GetEntities() EntityMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Entities.Clone()
}

// SetEntities overwrites the entity map and refreshes the activity timestamp.
func (s *ConversationSession) SetEntities(e EntityMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entities = e
	s.LastActive = time.Now().UTC()
}

// Touch refreshes the activity timestamp.
func (s *ConversationSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActive = time.Now().UTC()
}

// IdleSince reports whether the session has been inactive longer than ttl.
func (s *ConversationSession) IdleSince(now time.Time, ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ttl > 0 && now.Sub(s.LastActive) > ttl
}

// Clone returns a deep copy of the session (turns & entities) except mutex.
func (s *ConversationSession) Clone() *ConversationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &ConversationSession{
		ID:         s.ID,
		Turns:      make([]Turn, len(s.Turns)),
		Entities:   s.Entities.Clone(),
		Created:    s.Created,
		LastActive: s.LastActive,
	}
	copy(clone.Turns, s.Turns)
	return clone
}
