// Package app assembles the application: database pool, Gemini client,
// stores, tools, and the RAG system, in dependency order.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/ingest"
	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/session"
)

// App holds the initialized application components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Sessions *session.Store
	System   *rag.System
	Chunker  ingest.Chunker

	dbCleanup func()
}

// Close releases held resources. Safe to call after a failed Setup.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return nil
}
