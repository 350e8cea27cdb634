package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lectern-ai/lectern/internal/knowledge"
)

// sentenceBoundary matches the whitespace after sentence-ending punctuation.
// The lookbehind-free form keeps it compatible with Go's RE2 engine: the
// punctuation is captured and re-attached after splitting.
var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

// Chunker splits lesson transcripts into overlapping sentence-bounded
// windows measured in characters.
type Chunker struct {
	// Size is the target maximum chunk length. Windows never exceed it
	// unless a single sentence does.
	Size int

	// Overlap is the number of trailing characters of each window carried
	// into the next one. Must be smaller than Size.
	Overlap int
}

// Chunk converts a parsed document into its course record and the ordered
// chunks of its lessons. Each chunk's text is prefixed with
// "Course {title} Lesson {n} content: "; the prefix is part of the stored
// and embedded text. Chunk indexes are assigned in emission order starting
// at 0 and are unique across the whole course.
func (c Chunker) Chunk(doc *Document) (knowledge.Course, []knowledge.Chunk, error) {
	if c.Size < 1 {
		return knowledge.Course{}, nil, fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return knowledge.Course{}, nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", c.Overlap)
	}

	course := knowledge.Course{
		Title:      doc.Title,
		Link:       doc.Link,
		Instructor: doc.Instructor,
	}

	var chunks []knowledge.Chunk
	index := 0
	for _, lesson := range doc.Lessons {
		course.Lessons = append(course.Lessons, knowledge.Lesson{
			Number: lesson.Number,
			Title:  lesson.Title,
			Link:   lesson.Link,
		})

		prefix := fmt.Sprintf("Course %s Lesson %d content: ", doc.Title, lesson.Number)
		for _, window := range c.windows(splitSentences(lesson.Body)) {
			n := lesson.Number
			chunks = append(chunks, knowledge.Chunk{
				CourseTitle:  doc.Title,
				LessonNumber: &n,
				Index:        index,
				Content:      prefix + window,
			})
			index++
		}
	}
	return course, chunks, nil
}

// splitSentences breaks text into sentences on terminal punctuation followed
// by whitespace. Internal newlines collapse to spaces so transcripts wrapped
// mid-sentence chunk the same as unwrapped ones.
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// windows slides a sentence-bounded window over the sentences. Each window
// greedily packs whole sentences up to Size characters; a sentence longer
// than Size forms a window alone. The next window starts at the earliest
// sentence whose suffix within the current window fits in Overlap characters,
// and always advances by at least one sentence.
func (c Chunker) windows(sentences []string) []string {
	var out []string
	for start := 0; start < len(sentences); {
		end := start
		length := len(sentences[start])
		for end+1 < len(sentences) && length+1+len(sentences[end+1]) <= c.Size {
			length += 1 + len(sentences[end+1])
			end++
		}
		out = append(out, strings.Join(sentences[start:end+1], " "))

		if end+1 == len(sentences) {
			break
		}

		next := end + 1
		carried := 0
		for next-1 > start && carried+len(sentences[next-1]) <= c.Overlap {
			carried += len(sentences[next-1]) + 1
			next--
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}
