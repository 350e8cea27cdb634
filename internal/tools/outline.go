package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/internal/knowledge"
)

// OutlineToolName is the function name the model uses to fetch a course
// outline.
const OutlineToolName = "get_course_outline"

// OutlineTool returns a course's structure: title, link, instructor, and the
// full lesson list.
type OutlineTool struct {
	store Store
}

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(store Store) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Name() string { return OutlineToolName }

// Declaration describes the tool to the model.
func (t *OutlineTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        OutlineToolName,
		Description: "Get course outline including title, link, and complete lesson list with numbers and titles",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"course_title": {
					Type:        genai.TypeString,
					Description: "Course title to get outline for (partial matches work)",
				},
			},
			Required: []string{"course_title"},
		},
	}
}

// Execute resolves the course title and renders its outline. A source
// pointing at the course link accompanies the observation.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	courseTitle := stringArg(args, "course_title")
	if courseTitle == "" {
		return Result{Observation: "Outline lookup failed: no course title was provided."}, nil
	}

	title, err := t.store.ResolveCourseName(ctx, courseTitle)
	if errors.Is(err, knowledge.ErrNoCourseMatch) {
		return Result{Observation: fmt.Sprintf("No course found matching '%s'.", courseTitle)}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("resolving course name: %w", err)
	}

	outline, err := t.store.CourseOutline(ctx, title)
	if err != nil {
		return Result{}, fmt.Errorf("loading outline: %w", err)
	}

	return Result{
		Observation: formatOutline(outline),
		Sources: []Source{{
			CourseTitle: outline.Title,
			Link:        outline.Link,
		}},
	}, nil
}

// formatOutline renders the outline in the fixed layout the system prompt
// tells the model to relay.
func formatOutline(outline knowledge.Outline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Course Title:** %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&b, "**Course Link:** %s\n", outline.Link)
	}
	if outline.Instructor != "" {
		fmt.Fprintf(&b, "**Instructor:** %s\n", outline.Instructor)
	}
	fmt.Fprintf(&b, "**Total Lessons:** %d\n\n**Lesson List:**\n", len(outline.Lessons))

	for _, lesson := range outline.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s", lesson.Number, lesson.Title)
		if lesson.Link != "" {
			fmt.Fprintf(&b, " - %s", lesson.Link)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
