// Package ingest parses course transcript documents and splits them into
// context-prefixed, sentence-bounded chunks ready for embedding.
package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedDocument indicates a document whose header does not follow the
// expected course transcript format.
var ErrMalformedDocument = errors.New("malformed course document")

// Header labels expected on the first three lines of every document.
const (
	labelTitle      = "Course Title:"
	labelLink       = "Course Link:"
	labelInstructor = "Course Instructor:"
	labelLessonLink = "Lesson Link:"
)

// lessonMarker matches lesson boundary lines such as "Lesson 3: Advanced Topics".
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Document is a parsed course transcript: header metadata plus the per-lesson
// body text.
type Document struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []LessonContent
}

// LessonContent is one lesson's metadata and raw transcript body.
type LessonContent struct {
	Number int
	Title  string
	Link   string
	Body   string
}

// ParseDocument parses a course transcript. The first three lines must carry
// the fixed header labels, in order; the title value must be non-empty, the
// link and instructor values may be blank. The remainder is split on
// "Lesson <n>: <title>" markers, each optionally followed by a
// "Lesson Link:" line. Text before the first lesson marker is discarded.
func ParseDocument(text string) (*Document, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 header lines, got %d", ErrMalformedDocument, len(lines))
	}

	title, err := headerValue(lines[0], labelTitle)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("%w: course title is empty", ErrMalformedDocument)
	}
	link, err := headerValue(lines[1], labelLink)
	if err != nil {
		return nil, err
	}
	instructor, err := headerValue(lines[2], labelInstructor)
	if err != nil {
		return nil, err
	}

	doc := &Document{Title: title, Link: link, Instructor: instructor}
	doc.Lessons = parseLessons(lines[3:])
	return doc, nil
}

// headerValue extracts the value of a fixed-label header line.
func headerValue(line, label string) (string, error) {
	if !strings.HasPrefix(line, label) {
		return "", fmt.Errorf("%w: expected %q line, got %q", ErrMalformedDocument, label, truncateForError(line))
	}
	return strings.TrimSpace(strings.TrimPrefix(line, label)), nil
}

// truncateForError keeps error messages readable for long body lines.
func truncateForError(line string) string {
	const max = 40
	if len(line) <= max {
		return line
	}
	return line[:max] + "..."
}

// parseLessons splits the document body on lesson markers. A marker line may
// be directly followed by a "Lesson Link:" line, which is consumed as
// metadata rather than body text.
func parseLessons(lines []string) []LessonContent {
	var lessons []LessonContent
	var current *LessonContent
	var body []string

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(strings.Join(body, "\n"))
			lessons = append(lessons, *current)
		}
		body = body[:0]
	}

	for i := 0; i < len(lines); i++ {
		m := lessonMarker.FindStringSubmatch(lines[i])
		if m == nil {
			if current != nil {
				body = append(body, lines[i])
			}
			continue
		}

		flush()
		number, _ := strconv.Atoi(m[1])
		current = &LessonContent{Number: number, Title: strings.TrimSpace(m[2])}
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], labelLessonLink) {
			current.Link = strings.TrimSpace(strings.TrimPrefix(lines[i+1], labelLessonLink))
			i++
		}
	}
	flush()
	return lessons
}
