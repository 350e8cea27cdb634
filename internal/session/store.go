// Package session keeps per-session conversation history for the lifetime of
// the process. History is bounded: each session retains at most MaxHistory
// exchanges (one user turn plus one assistant turn each), with the oldest
// pair evicted first.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role
	Text string
}

// Store holds conversation history keyed by opaque session ID.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string][]Turn
	maxHistory int
	logger     *slog.Logger
}

// New creates a Store retaining at most maxHistory exchanges per session.
func New(maxHistory int, logger *slog.Logger) (*Store, error) {
	if maxHistory < 1 {
		return nil, fmt.Errorf("max history must be positive, got %d", maxHistory)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:   make(map[string][]Turn),
		maxHistory: maxHistory,
		logger:     logger,
	}, nil
}

// NewID generates a fresh opaque session identifier.
func (s *Store) NewID() string {
	id := uuid.NewString()
	s.logger.Debug("session created", "session_id", id)
	return id
}

// History returns the turns of a session in order, oldest first. An unknown
// session ID yields an empty history, not an error. The returned slice is a
// copy; callers may not mutate stored state through it.
func (s *Store) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records a turn, creating the session on first use. After appending,
// the session is truncated to the most recent 2*maxHistory turns so the
// oldest exchange drops out first.
func (s *Store) Append(sessionID string, role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], Turn{Role: role, Text: text})
	if limit := 2 * s.maxHistory; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	s.sessions[sessionID] = turns
}

// Len reports the number of turns currently stored for a session.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}
