package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgxQuerier implements Querier against PostgreSQL + pgvector.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier creates the production Querier backed by a pgx pool.
func NewPgxQuerier(pool *pgxpool.Pool) (*PgxQuerier, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PgxQuerier{pool: pool}, nil
}

// InsertCourseGraph inserts a course with its lessons and chunks in one
// transaction. A per-title advisory lock serializes concurrent inserts of the
// same course, and the existence recheck under that lock makes the operation
// idempotent: the loser of the race observes the winner's row and backs off.
func (q *PgxQuerier) InsertCourseGraph(ctx context.Context, arg InsertCourseGraphParams) (added bool, err error) {
	if len(arg.Chunks) != len(arg.ChunkEmbeddings) {
		return false, fmt.Errorf("%d chunks but %d embeddings", len(arg.Chunks), len(arg.ChunkEmbeddings))
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) && err == nil {
			err = fmt.Errorf("rolling back: %w", rbErr)
		}
	}()

	// pg_advisory_xact_lock releases automatically at commit/rollback.
	if _, lockErr := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, arg.Course.Title); lockErr != nil {
		return false, fmt.Errorf("acquiring advisory lock: %w", lockErr)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM courses WHERE title = $1)`, arg.Course.Title,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("rechecking course existence: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO courses (title, link, instructor, title_embedding) VALUES ($1, $2, $3, $4)`,
		arg.Course.Title, arg.Course.Link, arg.Course.Instructor, arg.TitleEmbedding,
	); err != nil {
		return false, fmt.Errorf("inserting course: %w", err)
	}

	for _, lesson := range arg.Course.Lessons {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lessons (course_title, number, title, link) VALUES ($1, $2, $3, $4)`,
			arg.Course.Title, lesson.Number, lesson.Title, lesson.Link,
		); err != nil {
			return false, fmt.Errorf("inserting lesson %d: %w", lesson.Number, err)
		}
	}

	for i, chunk := range arg.Chunks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chunks (course_title, chunk_index, lesson_number, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			arg.Course.Title, chunk.Index, chunk.LessonNumber, chunk.Content, arg.ChunkEmbeddings[i],
		); err != nil {
			return false, fmt.Errorf("inserting chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing: %w", err)
	}
	return true, nil
}

// CourseExists reports whether a course with the exact title exists.
func (q *PgxQuerier) CourseExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM courses WHERE title = $1)`, title,
	).Scan(&exists)
	return exists, err
}

// NearestCourseTitle returns the title whose embedding is closest to the
// query vector by cosine distance.
func (q *PgxQuerier) NearestCourseTitle(ctx context.Context, embedding pgvector.Vector) (string, error) {
	var title string
	err := q.pool.QueryRow(ctx,
		`SELECT title FROM courses ORDER BY title_embedding <=> $1 LIMIT 1`, embedding,
	).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrCourseNotFound
	}
	if err != nil {
		return "", err
	}
	return title, nil
}

// SearchChunks ranks content chunks by cosine similarity to the query
// embedding. Filters are applied before ranking. The lesson link is joined in
// so callers can attribute results without a second round trip.
func (q *PgxQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT c.content, c.course_title, c.lesson_number, l.link,
		        1 - (c.embedding <=> $1) AS similarity
		 FROM chunks c
		 LEFT JOIN lessons l ON l.course_title = c.course_title AND l.number = c.lesson_number
		 WHERE ($2 = '' OR c.course_title = $2)
		   AND ($3::int IS NULL OR c.lesson_number = $3)
		 ORDER BY c.embedding <=> $1
		 LIMIT $4`,
		arg.Embedding, arg.CourseTitle, arg.LessonNumber, arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var row ChunkRow
		if err := rows.Scan(&row.Content, &row.CourseTitle, &row.LessonNumber, &row.LessonLink, &row.Similarity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountCourses returns the number of indexed courses.
func (q *PgxQuerier) CountCourses(ctx context.Context) (int64, error) {
	var n int64
	err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n)
	return n, err
}

// ListCourseTitles returns all course titles in insertion order.
func (q *PgxQuerier) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, `SELECT title FROM courses ORDER BY created_at, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// GetCourseOutline returns a course's metadata and ordered lesson list.
func (q *PgxQuerier) GetCourseOutline(ctx context.Context, title string) (Outline, error) {
	var outline Outline
	err := q.pool.QueryRow(ctx,
		`SELECT title, link, instructor FROM courses WHERE title = $1`, title,
	).Scan(&outline.Title, &outline.Link, &outline.Instructor)
	if errors.Is(err, pgx.ErrNoRows) {
		return Outline{}, ErrCourseNotFound
	}
	if err != nil {
		return Outline{}, err
	}

	rows, err := q.pool.Query(ctx,
		`SELECT number, title, link FROM lessons WHERE course_title = $1 ORDER BY number`, title)
	if err != nil {
		return Outline{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var lesson Lesson
		if err := rows.Scan(&lesson.Number, &lesson.Title, &lesson.Link); err != nil {
			return Outline{}, err
		}
		outline.Lessons = append(outline.Lessons, lesson)
	}
	return outline, rows.Err()
}

// GetLessonLink returns the link for one lesson, or "" when the lesson does
// not exist or has no link.
func (q *PgxQuerier) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	var link string
	err := q.pool.QueryRow(ctx,
		`SELECT link FROM lessons WHERE course_title = $1 AND number = $2`, courseTitle, lessonNumber,
	).Scan(&link)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return link, nil
}
