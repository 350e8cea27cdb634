package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/internal/knowledge"
)

// mockStore implements Store for testing.
type mockStore struct {
	resolveTitle  string
	resolveErr    error
	resolveCalls  int
	lastResolved  string
	searchResults []knowledge.Result
	searchErr     error
	searchCalls   int
	lastQuery     string
	lastOpts      int
	outline       knowledge.Outline
	outlineErr    error
}

func (m *mockStore) ResolveCourseName(_ context.Context, name string) (string, error) {
	m.resolveCalls++
	m.lastResolved = name
	return m.resolveTitle, m.resolveErr
}

func (m *mockStore) Search(_ context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	m.searchCalls++
	m.lastQuery = query
	m.lastOpts = len(opts)
	return m.searchResults, m.searchErr
}

func (m *mockStore) CourseOutline(_ context.Context, _ string) (knowledge.Outline, error) {
	return m.outline, m.outlineErr
}

func intPtr(n int) *int { return &n }

func TestSearchToolExecute(t *testing.T) {
	hits := []knowledge.Result{
		{Content: "Chunks are embedded.", CourseTitle: "RAG Course", LessonNumber: intPtr(2), LessonLink: "https://example.com/l2"},
		{Content: "Queries are embedded too.", CourseTitle: "RAG Course", LessonNumber: intPtr(3)},
	}

	t.Run("formats hits as labeled blocks", func(t *testing.T) {
		store := &mockStore{searchResults: hits}
		tool := NewSearchTool(store)

		result, err := tool.Execute(context.Background(), map[string]any{"query": "embedding"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		want := "[RAG Course - Lesson 2]\nChunks are embedded.\n\n[RAG Course - Lesson 3]\nQueries are embedded too."
		if result.Observation != want {
			t.Errorf("Observation = %q, want %q", result.Observation, want)
		}
		if len(result.Sources) != 2 {
			t.Fatalf("Sources = %d, want 2", len(result.Sources))
		}
		first := result.Sources[0]
		if first.CourseTitle != "RAG Course" || first.LessonNumber == nil || *first.LessonNumber != 2 || first.Link != "https://example.com/l2" {
			t.Errorf("source 0 = %+v", first)
		}
		if result.Sources[1].Link != "" {
			t.Errorf("source 1 link = %q, want empty", result.Sources[1].Link)
		}
	})

	t.Run("course name resolved before search", func(t *testing.T) {
		store := &mockStore{resolveTitle: "RAG Course", searchResults: hits}
		tool := NewSearchTool(store)

		_, err := tool.Execute(context.Background(), map[string]any{
			"query":       "embedding",
			"course_name": "RAG",
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if store.resolveCalls != 1 || store.lastResolved != "RAG" {
			t.Errorf("resolve calls = %d, last = %q", store.resolveCalls, store.lastResolved)
		}
		if store.lastOpts != 1 {
			t.Errorf("search options = %d, want 1", store.lastOpts)
		}
	})

	t.Run("no course match becomes observation", func(t *testing.T) {
		store := &mockStore{resolveErr: knowledge.ErrNoCourseMatch}
		tool := NewSearchTool(store)

		result, err := tool.Execute(context.Background(), map[string]any{
			"query":       "anything",
			"course_name": "Nonexistent",
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result.Observation != "No course found matching 'Nonexistent'." {
			t.Errorf("Observation = %q", result.Observation)
		}
		if store.searchCalls != 0 {
			t.Errorf("search calls = %d, want 0", store.searchCalls)
		}
	})

	t.Run("empty results yield sentinel with filters", func(t *testing.T) {
		store := &mockStore{resolveTitle: "RAG Course"}
		tool := NewSearchTool(store)

		result, err := tool.Execute(context.Background(), map[string]any{
			"query":         "missing topic",
			"course_name":   "RAG",
			"lesson_number": float64(3),
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		want := "No relevant content found in course 'RAG' in lesson 3."
		if result.Observation != want {
			t.Errorf("Observation = %q, want %q", result.Observation, want)
		}
		if len(result.Sources) != 0 {
			t.Errorf("Sources = %d, want 0", len(result.Sources))
		}
	})

	t.Run("empty results without filters", func(t *testing.T) {
		tool := NewSearchTool(&mockStore{})

		result, err := tool.Execute(context.Background(), map[string]any{"query": "missing"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result.Observation != "No relevant content found." {
			t.Errorf("Observation = %q", result.Observation)
		}
	})

	t.Run("missing query becomes observation", func(t *testing.T) {
		store := &mockStore{}
		tool := NewSearchTool(store)

		result, err := tool.Execute(context.Background(), map[string]any{})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(result.Observation, "no query") {
			t.Errorf("Observation = %q", result.Observation)
		}
		if store.searchCalls != 0 {
			t.Errorf("search calls = %d, want 0", store.searchCalls)
		}
	})

	t.Run("store failure surfaces as error", func(t *testing.T) {
		tool := NewSearchTool(&mockStore{searchErr: errors.New("connection reset")})
		if _, err := tool.Execute(context.Background(), map[string]any{"query": "x"}); err == nil {
			t.Error("Execute() error = nil, want error")
		}
	})
}

func TestSearchToolDeclaration(t *testing.T) {
	decl := NewSearchTool(&mockStore{}).Declaration()
	if decl.Name != SearchToolName {
		t.Errorf("Name = %q", decl.Name)
	}
	if decl.Parameters.Type != genai.TypeObject {
		t.Errorf("Parameters.Type = %v", decl.Parameters.Type)
	}
	for _, key := range []string{"query", "course_name", "lesson_number"} {
		if _, ok := decl.Parameters.Properties[key]; !ok {
			t.Errorf("missing parameter %q", key)
		}
	}
	if len(decl.Parameters.Required) != 1 || decl.Parameters.Required[0] != "query" {
		t.Errorf("Required = %v, want [query]", decl.Parameters.Required)
	}
}

func TestOutlineToolExecute(t *testing.T) {
	outline := knowledge.Outline{
		Title:      "RAG Course",
		Link:       "https://example.com/rag",
		Instructor: "Ada Lovelace",
		Lessons: []knowledge.Lesson{
			{Number: 0, Title: "Intro", Link: "https://example.com/l0"},
			{Number: 1, Title: "Retrieval"},
		},
	}

	t.Run("renders full outline", func(t *testing.T) {
		store := &mockStore{resolveTitle: "RAG Course", outline: outline}
		tool := NewOutlineTool(store)

		result, err := tool.Execute(context.Background(), map[string]any{"course_title": "RAG"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		for _, want := range []string{
			"**Course Title:** RAG Course",
			"**Course Link:** https://example.com/rag",
			"**Instructor:** Ada Lovelace",
			"**Total Lessons:** 2",
			"Lesson 0: Intro - https://example.com/l0",
			"Lesson 1: Retrieval",
		} {
			if !strings.Contains(result.Observation, want) {
				t.Errorf("Observation missing %q:\n%s", want, result.Observation)
			}
		}

		if len(result.Sources) != 1 {
			t.Fatalf("Sources = %d, want 1", len(result.Sources))
		}
		if result.Sources[0].CourseTitle != "RAG Course" || result.Sources[0].LessonNumber != nil {
			t.Errorf("source = %+v", result.Sources[0])
		}
	})

	t.Run("no course match becomes observation", func(t *testing.T) {
		tool := NewOutlineTool(&mockStore{resolveErr: knowledge.ErrNoCourseMatch})

		result, err := tool.Execute(context.Background(), map[string]any{"course_title": "Nope"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result.Observation != "No course found matching 'Nope'." {
			t.Errorf("Observation = %q", result.Observation)
		}
	})

	t.Run("missing title becomes observation", func(t *testing.T) {
		result, err := NewOutlineTool(&mockStore{}).Execute(context.Background(), map[string]any{})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(result.Observation, "no course title") {
			t.Errorf("Observation = %q", result.Observation)
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("declarations in registration order", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(NewSearchTool(&mockStore{})); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if err := r.Register(NewOutlineTool(&mockStore{})); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		decls := r.Declarations()
		if len(decls) != 2 {
			t.Fatalf("Declarations() = %d, want 2", len(decls))
		}
		if decls[0].Name != SearchToolName || decls[1].Name != OutlineToolName {
			t.Errorf("order = %q, %q", decls[0].Name, decls[1].Name)
		}
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(NewSearchTool(&mockStore{})); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if err := r.Register(NewSearchTool(&mockStore{})); err == nil {
			t.Error("Register() duplicate error = nil, want error")
		}
	})

	t.Run("unknown tool absorbed", func(t *testing.T) {
		r := NewRegistry(nil)
		result := r.Execute(context.Background(), "nope", nil)
		if result.Observation != "Tool 'nope' not found." {
			t.Errorf("Observation = %q", result.Observation)
		}
	})

	t.Run("tool error absorbed", func(t *testing.T) {
		r := NewRegistry(nil)
		store := &mockStore{searchErr: errors.New("boom")}
		if err := r.Register(NewSearchTool(store)); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		result := r.Execute(context.Background(), SearchToolName, map[string]any{"query": "x"})
		if !strings.Contains(result.Observation, "failed") {
			t.Errorf("Observation = %q", result.Observation)
		}
		if len(result.Sources) != 0 {
			t.Errorf("Sources = %d, want 0", len(result.Sources))
		}
	})
}
