package session

import (
	"fmt"
	"sync"
	"testing"
)

func newStore(t *testing.T, maxHistory int) *Store {
	t.Helper()
	s, err := New(maxHistory, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		maxHistory int
		wantErr    bool
	}{
		{name: "valid", maxHistory: 2, wantErr: false},
		{name: "zero", maxHistory: 0, wantErr: true},
		{name: "negative", maxHistory: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.maxHistory, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d) error = %v, wantErr %v", tt.maxHistory, err, tt.wantErr)
			}
		})
	}
}

func TestNewIDUnique(t *testing.T) {
	s := newStore(t, 2)
	seen := make(map[string]bool)
	for range 100 {
		id := s.NewID()
		if id == "" {
			t.Fatal("NewID() returned empty string")
		}
		if seen[id] {
			t.Fatalf("NewID() returned duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	s := newStore(t, 2)
	if got := s.History("never-seen"); len(got) != 0 {
		t.Errorf("History() = %v, want empty", got)
	}
}

func TestAppendAndHistory(t *testing.T) {
	s := newStore(t, 2)
	id := s.NewID()

	s.Append(id, RoleUser, "What is RAG?")
	s.Append(id, RoleAssistant, "Retrieval-augmented generation.")

	history := s.History(id)
	if len(history) != 2 {
		t.Fatalf("History() = %d turns, want 2", len(history))
	}
	if history[0].Role != RoleUser || history[0].Text != "What is RAG?" {
		t.Errorf("turn 0 = %+v", history[0])
	}
	if history[1].Role != RoleAssistant {
		t.Errorf("turn 1 = %+v", history[1])
	}
}

func TestAppendTruncatesOldestFirst(t *testing.T) {
	const maxHistory = 2
	s := newStore(t, maxHistory)
	id := s.NewID()

	for i := range 5 {
		s.Append(id, RoleUser, fmt.Sprintf("question %d", i))
		s.Append(id, RoleAssistant, fmt.Sprintf("answer %d", i))
	}

	history := s.History(id)
	if len(history) != 2*maxHistory {
		t.Fatalf("History() = %d turns, want %d", len(history), 2*maxHistory)
	}
	// The two most recent exchanges survive.
	if history[0].Text != "question 3" {
		t.Errorf("oldest surviving turn = %q, want %q", history[0].Text, "question 3")
	}
	if history[3].Text != "answer 4" {
		t.Errorf("newest turn = %q, want %q", history[3].Text, "answer 4")
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := newStore(t, 2)
	id := s.NewID()
	s.Append(id, RoleUser, "original")

	history := s.History(id)
	history[0].Text = "mutated"

	if got := s.History(id)[0].Text; got != "original" {
		t.Errorf("stored turn = %q, want %q", got, "original")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newStore(t, 2)
	a, b := s.NewID(), s.NewID()

	s.Append(a, RoleUser, "for a")
	if got := s.History(b); len(got) != 0 {
		t.Errorf("History(b) = %v, want empty", got)
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := newStore(t, 10)
	id := s.NewID()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(id, RoleUser, "q")
			s.Append(id, RoleAssistant, "a")
			_ = s.History(id)
		}()
	}
	wg.Wait()

	if got := s.Len(id); got != 20 {
		t.Errorf("Len() = %d, want 20", got)
	}
}
