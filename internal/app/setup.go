package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/db"
	"github.com/lectern-ai/lectern/internal/agent"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/ingest"
	"github.com/lectern-ai/lectern/internal/knowledge"
	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// Model call rate limits: 10 requests per second sustained, bursts of 30.
const (
	modelRatePerSecond = 10
	modelRateBurst     = 30
)

// Setup initializes the full application. On failure everything already
// initialized is torn down before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.Pool = pool

	// The genai client reads GEMINI_API_KEY / GOOGLE_API_KEY from the
	// environment.
	client, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	embedder, err := knowledge.NewGeminiEmbedder(client, cfg.EmbedderModel, cfg.VectorDim)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	querier, err := knowledge.NewPgxQuerier(pool)
	if err != nil {
		return nil, fmt.Errorf("creating querier: %w", err)
	}

	store, err := knowledge.New(querier, embedder, cfg.MaxResults, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	sessions, err := session.New(cfg.MaxHistory, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	a.Sessions = sessions

	registry := tools.NewRegistry(logger)
	if err := registry.Register(tools.NewSearchTool(store)); err != nil {
		return nil, fmt.Errorf("registering search tool: %w", err)
	}
	if err := registry.Register(tools.NewOutlineTool(store)); err != nil {
		return nil, fmt.Errorf("registering outline tool: %w", err)
	}

	generator, err := agent.New(agent.Config{
		Client:   client.Models,
		Model:    cfg.ModelName,
		Registry: registry,
		Limiter:  rate.NewLimiter(modelRatePerSecond, modelRateBurst),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	system, err := rag.NewSystem(store, sessions, generator, logger)
	if err != nil {
		return nil, fmt.Errorf("creating rag system: %w", err)
	}
	a.System = system
	a.Chunker = ingest.Chunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}

	return a, nil
}

// provideDBPool runs migrations and creates the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}
