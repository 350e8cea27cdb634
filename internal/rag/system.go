// Package rag wires sessions, the knowledge store, and the agent loop into
// the question-answering pipeline.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lectern-ai/lectern/internal/knowledge"
	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// Generator produces the answer to one query given prior history.
type Generator interface {
	Generate(ctx context.Context, query string, history []session.Turn) (string, []tools.Source, error)
}

// Sessions is the slice of the session store the system depends on.
type Sessions interface {
	NewID() string
	History(sessionID string) []session.Turn
	Append(sessionID string, role session.Role, text string)
}

// Knowledge is the slice of the knowledge store the system depends on.
type Knowledge interface {
	Upsert(ctx context.Context, course knowledge.Course, chunks []knowledge.Chunk) (bool, error)
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
}

// Reply is the answer to one query.
type Reply struct {
	Answer    string
	Sources   []tools.Source
	SessionID string
}

// Analytics summarizes the indexed corpus.
type Analytics struct {
	TotalCourses int
	CourseTitles []string
}

// System orchestrates a query end to end: session resolution, the agent
// loop, and history bookkeeping.
//
// System is safe for concurrent use; concurrent queries on distinct sessions
// do not interfere.
type System struct {
	store     Knowledge
	sessions  Sessions
	generator Generator
	logger    *slog.Logger
}

// NewSystem creates a System.
func NewSystem(store Knowledge, sessions Sessions, generator Generator, logger *slog.Logger) (*System, error) {
	if store == nil {
		return nil, errors.New("knowledge store is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &System{store: store, sessions: sessions, generator: generator, logger: logger}, nil
}

// Answer runs one query. An empty sessionID starts a fresh session. A
// generation failure aborts only this query: nothing is appended to the
// session, so a retry sees the same history.
func (s *System) Answer(ctx context.Context, query, sessionID string) (Reply, error) {
	if query == "" {
		return Reply{}, errors.New("query is required")
	}
	if sessionID == "" {
		sessionID = s.sessions.NewID()
	}

	history := s.sessions.History(sessionID)

	answer, sources, err := s.generator.Generate(ctx, query, history)
	if err != nil {
		s.logger.Error("query failed", "session_id", sessionID, "error", err)
		return Reply{}, fmt.Errorf("answering query: %w", err)
	}

	s.sessions.Append(sessionID, session.RoleUser, query)
	s.sessions.Append(sessionID, session.RoleAssistant, answer)

	return Reply{Answer: answer, Sources: sources, SessionID: sessionID}, nil
}

// CourseAnalytics reports how many courses are indexed and their titles.
func (s *System) CourseAnalytics(ctx context.Context) (Analytics, error) {
	count, err := s.store.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("counting courses: %w", err)
	}
	titles, err := s.store.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("listing courses: %w", err)
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}
