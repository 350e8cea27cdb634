package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/internal/knowledge"
)

// SearchToolName is the function name the model uses to search course content.
const SearchToolName = "search_course_content"

// noContentSentinel is returned instead of an empty observation so the model
// never has to interpret an empty string.
const noContentSentinel = "No relevant content found"

// SearchTool performs semantic search over course content with fuzzy course
// name matching and lesson filtering.
type SearchTool struct {
	store Store
}

// NewSearchTool creates the course-content search tool.
func NewSearchTool(store Store) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Name() string { return SearchToolName }

// Declaration describes the tool to the model.
func (t *SearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        genai.TypeString,
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        genai.TypeInteger,
					Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Execute resolves the optional course name to an exact title, searches, and
// formats each hit as a labeled block. Empty results and unmatchable course
// names come back as explanatory observations, not errors, so the model can
// answer in natural language.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	query := stringArg(args, "query")
	if query == "" {
		return Result{Observation: "Search failed: no query was provided."}, nil
	}
	courseName := stringArg(args, "course_name")
	lessonNumber, hasLesson := intArg(args, "lesson_number")

	var opts []knowledge.SearchOption
	if courseName != "" {
		title, err := t.store.ResolveCourseName(ctx, courseName)
		if errors.Is(err, knowledge.ErrNoCourseMatch) {
			return Result{Observation: fmt.Sprintf("No course found matching '%s'.", courseName)}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("resolving course name: %w", err)
		}
		opts = append(opts, knowledge.WithCourse(title))
	}
	if hasLesson {
		opts = append(opts, knowledge.WithLesson(lessonNumber))
	}

	results, err := t.store.Search(ctx, query, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		var filter strings.Builder
		if courseName != "" {
			fmt.Fprintf(&filter, " in course '%s'", courseName)
		}
		if hasLesson {
			fmt.Fprintf(&filter, " in lesson %d", lessonNumber)
		}
		return Result{Observation: noContentSentinel + filter.String() + "."}, nil
	}

	return formatResults(results), nil
}

// formatResults renders hits as "[course - Lesson n]\n{content}" blocks and
// collects one source per hit.
func formatResults(results []knowledge.Result) Result {
	blocks := make([]string, 0, len(results))
	sources := make([]Source, 0, len(results))

	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", r.Label(), r.Content))
		sources = append(sources, Source{
			CourseTitle:  r.CourseTitle,
			LessonNumber: r.LessonNumber,
			Link:         r.LessonLink,
		})
	}

	return Result{
		Observation: strings.Join(blocks, "\n\n"),
		Sources:     sources,
	}
}
