package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"
)

// ErrNoCourseMatch indicates a course-name resolution against an empty store.
// With at least one course indexed, resolution always returns the nearest
// title instead.
var ErrNoCourseMatch = errors.New("no course matches")

// ErrCourseNotFound indicates a lookup for a course title that is not in the
// store.
var ErrCourseNotFound = errors.New("course not found")

// DefaultSearchLimit bounds search results when no explicit limit is given.
const DefaultSearchLimit = 5

// Querier defines the database operations Store depends on. Interfaces are
// defined by the consumer, so tests can substitute an in-memory fake while
// production wires the pgx-backed implementation from NewPgxQuerier.
type Querier interface {
	// InsertCourseGraph atomically inserts a course with its lessons and
	// chunks. It returns false without modifying anything when a course
	// with the same title already exists.
	InsertCourseGraph(ctx context.Context, arg InsertCourseGraphParams) (bool, error)

	// CourseExists reports whether a course with the exact title exists.
	CourseExists(ctx context.Context, title string) (bool, error)

	// NearestCourseTitle returns the stored course title whose embedding is
	// closest to the query vector. Returns ErrCourseNotFound when the store
	// holds no courses.
	NearestCourseTitle(ctx context.Context, embedding pgvector.Vector) (string, error)

	// SearchChunks performs filtered vector search over content chunks.
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error)

	// CountCourses returns the number of indexed courses.
	CountCourses(ctx context.Context) (int64, error)

	// ListCourseTitles returns all course titles in insertion order.
	ListCourseTitles(ctx context.Context) ([]string, error)

	// GetCourseOutline returns a course's metadata and lesson list.
	// Returns ErrCourseNotFound when the title is not indexed.
	GetCourseOutline(ctx context.Context, title string) (Outline, error)

	// GetLessonLink returns the link for one lesson of a course, or ""
	// when the lesson has no link.
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// InsertCourseGraphParams carries a fully-embedded course ready for insertion.
type InsertCourseGraphParams struct {
	Course          Course
	TitleEmbedding  pgvector.Vector
	Chunks          []Chunk
	ChunkEmbeddings []pgvector.Vector
}

// SearchChunksParams parameterizes a chunk vector search. An empty
// CourseTitle matches all courses; a nil LessonNumber matches all lessons.
type SearchChunksParams struct {
	Embedding    pgvector.Vector
	CourseTitle  string
	LessonNumber *int
	Limit        int
}

// ChunkRow is one row returned by SearchChunks.
type ChunkRow struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	LessonLink   *string
	Similarity   float64
}

// Store manages course material with vector search over content chunks and
// fuzzy course-name resolution over title embeddings.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries     Querier
	embedder    Embedder
	searchLimit int
	logger      *slog.Logger
}

// New creates a Store. searchLimit bounds Search results when no WithLimit
// option is given; values < 1 fall back to DefaultSearchLimit.
func New(querier Querier, embedder Embedder, searchLimit int, logger *slog.Logger) (*Store, error) {
	if querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if searchLimit < 1 {
		searchLimit = DefaultSearchLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, embedder: embedder, searchLimit: searchLimit, logger: logger}, nil
}

// Upsert indexes a course with its content chunks. When a course with the
// same title is already indexed the call is a no-op and returns false, so
// re-running ingestion over the same documents never duplicates content.
//
// Embeddings are generated before touching the database: a title embedding
// for fuzzy name resolution and one embedding per chunk for content search.
func (s *Store) Upsert(ctx context.Context, course Course, chunks []Chunk) (bool, error) {
	if course.Title == "" {
		return false, fmt.Errorf("course title is required")
	}

	// Cheap precheck so unchanged re-ingestion skips embedding entirely.
	// InsertCourseGraph rechecks under an advisory lock, so a concurrent
	// insert between here and there still cannot duplicate the course.
	exists, err := s.queries.CourseExists(ctx, course.Title)
	if err != nil {
		return false, fmt.Errorf("checking course %q: %w", course.Title, err)
	}
	if exists {
		s.logger.Debug("course already indexed, skipping", "course", course.Title)
		return false, nil
	}

	titleVecs, err := s.embedder.Embed(ctx, []string{course.Title})
	if err != nil {
		return false, fmt.Errorf("embedding title of %q: %w", course.Title, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	chunkVecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return false, fmt.Errorf("embedding chunks of %q: %w", course.Title, err)
	}
	if len(chunkVecs) != len(chunks) {
		return false, fmt.Errorf("embedding chunks of %q: got %d vectors for %d chunks",
			course.Title, len(chunkVecs), len(chunks))
	}

	embeddings := make([]pgvector.Vector, len(chunkVecs))
	for i, v := range chunkVecs {
		embeddings[i] = pgvector.NewVector(v)
	}

	added, err := s.queries.InsertCourseGraph(ctx, InsertCourseGraphParams{
		Course:          course,
		TitleEmbedding:  pgvector.NewVector(titleVecs[0]),
		Chunks:          chunks,
		ChunkEmbeddings: embeddings,
	})
	if err != nil {
		return false, fmt.Errorf("inserting course %q: %w", course.Title, err)
	}
	if added {
		s.logger.Info("course indexed", "course", course.Title, "chunks", len(chunks))
	}
	return added, nil
}

// ResolveCourseName maps a partial or fuzzy course name to the nearest stored
// course title by embedding similarity. "MCP" resolves to the full title of
// the course about MCP even though no title equals "MCP". The nearest title
// is returned unconditionally; only an empty store yields ErrNoCourseMatch.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("course name is required")
	}

	vecs, err := s.embedder.Embed(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embedding course name %q: %w", name, err)
	}

	title, err := s.queries.NearestCourseTitle(ctx, pgvector.NewVector(vecs[0]))
	if errors.Is(err, ErrCourseNotFound) {
		return "", ErrNoCourseMatch
	}
	if err != nil {
		return "", fmt.Errorf("resolving course name %q: %w", name, err)
	}
	return title, nil
}

// Search performs semantic search over content chunks, most similar first.
// Filters narrow the candidate set before ranking, so a course filter never
// crowds results out with chunks from other courses.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	params := searchParams{limit: s.searchLimit}
	for _, opt := range opts {
		opt(&params)
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchChunks(ctx, SearchChunksParams{
		Embedding:    pgvector.NewVector(vecs[0]),
		CourseTitle:  params.courseTitle,
		LessonNumber: params.lessonNumber,
		Limit:        params.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		r := Result{
			Content:      row.Content,
			CourseTitle:  row.CourseTitle,
			LessonNumber: row.LessonNumber,
			Similarity:   row.Similarity,
		}
		if row.LessonLink != nil {
			r.LessonLink = *row.LessonLink
		}
		results = append(results, r)
	}

	s.logger.Debug("search complete",
		"query", query, "course", params.courseTitle, "results", len(results))
	return results, nil
}

// CourseCount returns the number of indexed courses.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	n, err := s.queries.CountCourses(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return int(n), nil
}

// CourseTitles returns the titles of all indexed courses.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	titles, err := s.queries.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing course titles: %w", err)
	}
	return titles, nil
}

// CourseOutline returns the metadata and lesson list for the course with the
// exact given title. Callers with a fuzzy name should ResolveCourseName first.
func (s *Store) CourseOutline(ctx context.Context, title string) (Outline, error) {
	if title == "" {
		return Outline{}, fmt.Errorf("course title is required")
	}
	outline, err := s.queries.GetCourseOutline(ctx, title)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			return Outline{}, fmt.Errorf("course %q: %w", title, ErrCourseNotFound)
		}
		return Outline{}, fmt.Errorf("loading outline of %q: %w", title, err)
	}
	return outline, nil
}

// LessonLink returns the link for one lesson of a course, or "" when the
// lesson has no link or does not exist.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	link, err := s.queries.GetLessonLink(ctx, courseTitle, lessonNumber)
	if err != nil {
		return "", fmt.Errorf("loading link for %q lesson %d: %w", courseTitle, lessonNumber, err)
	}
	return link, nil
}
