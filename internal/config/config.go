// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (LECTERN_ prefix, plus DATABASE_URL)
//  2. Config file (~/.lectern/config.yaml)
//  3. Default values
//
// Sensitive values (passwords, API keys) are never logged.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the chunk overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidMaxResults indicates the search result limit is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxHistory indicates the history bound is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidVectorDimension indicates the embedding dimension is out of range.
	ErrInvalidVectorDimension = errors.New("invalid vector dimension")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrMissingAPIKey indicates the Gemini API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Default configuration values.
const (
	DefaultModelName     = "gemini-2.0-flash"
	DefaultEmbedderModel = "text-embedding-004"
	DefaultVectorDim     = 768

	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	DefaultMaxResults   = 5
	DefaultMaxHistory   = 2

	DefaultDocsDir = "docs"
	DefaultAddr    = "127.0.0.1:8000"
)

// Config holds all application configuration.
type Config struct {
	// AI
	ModelName     string // Gemini model for the agent loop
	EmbedderModel string // Embedding model for chunks and course titles
	VectorDim     int    // Embedding dimensionality (must match migrations)

	// Retrieval
	ChunkSize    int // Target chunk window size in characters
	ChunkOverlap int // Characters shared between consecutive chunks
	MaxResults   int // Search result limit handed to the agent tool
	MaxHistory   int // Retained conversation exchanges per session

	// Ingestion
	DocsDir string // Directory of course transcripts loaded at startup

	// HTTP
	Addr string // Listen address for the API server

	// PostgreSQL
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDBName   string
	PostgresSSLMode  string
}

// Load reads configuration from defaults, the optional config file, and
// environment variables, in increasing priority.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file at ~/.lectern/config.yaml.
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".lectern"))
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults + env apply.
	}

	v.SetEnvPrefix("LECTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ModelName:     v.GetString("ai.model"),
		EmbedderModel: v.GetString("ai.embedder_model"),
		VectorDim:     v.GetInt("ai.vector_dim"),

		ChunkSize:    v.GetInt("retrieval.chunk_size"),
		ChunkOverlap: v.GetInt("retrieval.chunk_overlap"),
		MaxResults:   v.GetInt("retrieval.max_results"),
		MaxHistory:   v.GetInt("retrieval.max_history"),

		DocsDir: v.GetString("ingest.docs_dir"),
		Addr:    v.GetString("server.addr"),

		PostgresHost:     v.GetString("postgres.host"),
		PostgresPort:     v.GetInt("postgres.port"),
		PostgresUser:     v.GetString("postgres.user"),
		PostgresPassword: v.GetString("postgres.password"),
		PostgresDBName:   v.GetString("postgres.dbname"),
		PostgresSSLMode:  v.GetString("postgres.sslmode"),
	}

	// DATABASE_URL overrides individual postgres settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.model", DefaultModelName)
	v.SetDefault("ai.embedder_model", DefaultEmbedderModel)
	v.SetDefault("ai.vector_dim", DefaultVectorDim)

	v.SetDefault("retrieval.chunk_size", DefaultChunkSize)
	v.SetDefault("retrieval.chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("retrieval.max_results", DefaultMaxResults)
	v.SetDefault("retrieval.max_history", DefaultMaxHistory)

	v.SetDefault("ingest.docs_dir", DefaultDocsDir)
	v.SetDefault("server.addr", DefaultAddr)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "lectern")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "lectern")
	v.SetDefault("postgres.sslmode", "disable")
}

// Validate checks configuration invariants shared by all commands.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: must be in [0, chunk size), got %d", ErrInvalidChunkOverlap, c.ChunkOverlap)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxResults, c.MaxResults)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxHistory, c.MaxHistory)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return ErrInvalidModelName
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return ErrInvalidEmbedderModel
	}
	if c.VectorDim <= 0 || c.VectorDim > 4096 {
		return fmt.Errorf("%w: must be in (0, 4096], got %d", ErrInvalidVectorDimension, c.VectorDim)
	}
	if strings.TrimSpace(c.PostgresHost) == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	return nil
}

// ValidateServe checks the additional requirements for commands that talk to
// the Gemini API. The genai client reads GEMINI_API_KEY or GOOGLE_API_KEY
// from the environment.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY or GOOGLE_API_KEY", ErrMissingAPIKey)
	}
	return nil
}
