// Package tools exposes course-material capabilities to the agent as
// declared functions the model can call.
package tools

import (
	"context"

	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/internal/knowledge"
)

// Tool is a capability the model may invoke by name. Execute receives the
// model-supplied arguments decoded from the function call.
type Tool interface {
	Name() string
	Declaration() *genai.FunctionDeclaration
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Result is a completed tool execution. Observation is the text fed back to
// the model; Sources identify the course material the observation was drawn
// from and travel with the result rather than through shared tool state, so
// concurrent queries cannot leak each other's attribution.
type Result struct {
	Observation string
	Sources     []Source
}

// Source attributes one piece of retrieved material. LessonNumber is nil for
// course-level material such as outlines.
type Source struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	Link         string `json:"link,omitempty"`
}

// Store is the slice of the knowledge store the tools depend on.
type Store interface {
	ResolveCourseName(ctx context.Context, name string) (string, error)
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
	CourseOutline(ctx context.Context, title string) (knowledge.Outline, error)
}

// stringArg extracts an optional string argument.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an optional integer argument. Function-call arguments
// arrive as JSON numbers, so float64 is the common case.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
