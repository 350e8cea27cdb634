package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lectern-ai/lectern/internal/ingest"
)

// loadConcurrency bounds how many documents embed in parallel during startup
// ingestion.
const loadConcurrency = 4

// LoadResult summarizes one directory load.
type LoadResult struct {
	CoursesAdded   int
	CoursesSkipped int
	ChunksAdded    int
	FilesFailed    int
}

// LoadDocuments ingests every .txt document in dir. Already-indexed courses
// are skipped, so re-running over the same directory is idempotent. A
// malformed or failing document is logged and skipped; it never aborts the
// rest of the load.
func (s *System) LoadDocuments(ctx context.Context, dir string, chunker ingest.Chunker) (LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LoadResult{}, fmt.Errorf("reading document directory: %w", err)
	}

	var added, skipped, chunks, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		g.Go(func() error {
			n, ok, err := s.loadOne(ctx, path, chunker)
			switch {
			case err != nil:
				// Skip and continue; only context cancellation stops the load.
				s.logger.Warn("skipping document", "path", path, "error", err)
				failed.Add(1)
				return ctx.Err()
			case ok:
				added.Add(1)
				chunks.Add(int64(n))
			default:
				skipped.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return LoadResult{}, fmt.Errorf("loading documents: %w", err)
	}

	result := LoadResult{
		CoursesAdded:   int(added.Load()),
		CoursesSkipped: int(skipped.Load()),
		ChunksAdded:    int(chunks.Load()),
		FilesFailed:    int(failed.Load()),
	}
	s.logger.Info("document load complete",
		"added", result.CoursesAdded,
		"skipped", result.CoursesSkipped,
		"chunks", result.ChunksAdded,
		"failed", result.FilesFailed)
	return result, nil
}

// loadOne parses, chunks, and upserts a single document. Returns the chunk
// count and whether the course was newly added.
func (s *System) loadOne(ctx context.Context, path string, chunker ingest.Chunker) (int, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, fmt.Errorf("reading: %w", err)
	}

	doc, err := ingest.ParseDocument(string(data))
	if err != nil {
		return 0, false, fmt.Errorf("parsing: %w", err)
	}

	course, chunks, err := chunker.Chunk(doc)
	if err != nil {
		return 0, false, fmt.Errorf("chunking: %w", err)
	}

	added, err := s.store.Upsert(ctx, course, chunks)
	if err != nil {
		return 0, false, fmt.Errorf("indexing: %w", err)
	}
	return len(chunks), added, nil
}
