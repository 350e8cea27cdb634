package knowledge

import "fmt"

// Course is a single course document: identity metadata plus its ordered
// lessons. Title doubles as the unique identifier across the whole store.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is one lesson within a course.
type Lesson struct {
	Number int
	Title  string
	Link   string
}

// Chunk is a searchable fragment of course content. LessonNumber is nil for
// chunks that precede the first lesson marker.
type Chunk struct {
	CourseTitle  string
	LessonNumber *int
	Index        int
	Content      string
}

// Result is a single search hit, ordered by similarity to the query.
type Result struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	LessonLink   string
	Similarity   float64
}

// Label renders the result's provenance for display,
// e.g. "Building RAG Chatbots - Lesson 3".
func (r Result) Label() string {
	if r.LessonNumber == nil {
		return r.CourseTitle
	}
	return fmt.Sprintf("%s - Lesson %d", r.CourseTitle, *r.LessonNumber)
}

// Outline is the structural summary of a course: its metadata and the
// number and title of every lesson, without any content.
type Outline struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// searchParams collects the optional knobs for Search.
type searchParams struct {
	courseTitle  string
	lessonNumber *int
	limit        int
}

// SearchOption configures a Search call.
type SearchOption func(*searchParams)

// WithCourse restricts search to a single course by its exact title.
func WithCourse(title string) SearchOption {
	return func(p *searchParams) {
		p.courseTitle = title
	}
}

// WithLesson restricts search to a single lesson number.
func WithLesson(number int) SearchOption {
	return func(p *searchParams) {
		n := number
		p.lessonNumber = &n
	}
}

// WithLimit overrides the store's default maximum result count.
// Values < 1 are ignored.
func WithLimit(limit int) SearchOption {
	return func(p *searchParams) {
		if limit >= 1 {
			p.limit = limit
		}
	}
}
