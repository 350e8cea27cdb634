// Package agent drives the tool-calling conversation with the language
// model. A query gets at most one round of tool execution: if the model
// requests tools, they run and the model is re-invoked once; the second
// response is final no matter what it contains.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// FallbackResponseMessage is returned when the model produces no usable text.
const FallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// Generation parameters, fixed for reproducible answers.
const (
	temperature     float32 = 0
	maxOutputTokens int32   = 800
)

// ModelClient is the slice of the genai API the generator uses.
// *genai.Models satisfies it.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config contains the required parameters for a Generator.
type Config struct {
	Client   ModelClient
	Model    string
	Registry *tools.Registry
	Limiter  *rate.Limiter // nil disables proactive rate limiting
	Logger   *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Client == nil {
		return errors.New("model client is required")
	}
	if cfg.Model == "" {
		return errors.New("model name is required")
	}
	if cfg.Registry == nil {
		return errors.New("tool registry is required")
	}
	return nil
}

// Generator answers a single query with bounded tool use.
//
// Generator is stateless and safe for concurrent use.
type Generator struct {
	client   ModelClient
	model    string
	registry *tools.Registry
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a Generator from the given configuration.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:   cfg.Client,
		model:    cfg.Model,
		registry: cfg.Registry,
		limiter:  cfg.Limiter,
		logger:   logger,
	}, nil
}

// Generate produces the answer to one query. Prior history rides in the
// system instruction; the query is the sole user turn. Returned sources are
// accumulated from every tool the model invoked, in execution order, and
// empty when no tool ran.
func (g *Generator) Generate(ctx context.Context, query string, history []session.Turn) (string, []tools.Source, error) {
	if query == "" {
		return "", nil, errors.New("query is required")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buildSystemInstruction(history), genai.RoleUser),
		Temperature:       genai.Ptr(temperature),
		MaxOutputTokens:   maxOutputTokens,
		Tools: []*genai.Tool{
			{FunctionDeclarations: g.registry.Declarations()},
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}

	resp, err := g.callModel(ctx, contents, config)
	if err != nil {
		return "", nil, fmt.Errorf("model call: %w", err)
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return textOrFallback(resp), nil, nil
	}

	// Single tool round: execute every requested call, feed the results
	// back, and take the next response as final.
	contents = append(contents, resp.Candidates[0].Content)

	parts := make([]*genai.Part, 0, len(calls))
	var sources []tools.Source
	for _, call := range calls {
		g.logger.Debug("executing tool", "tool", call.Name)
		result := g.registry.Execute(ctx, call.Name, call.Args)
		sources = append(sources, result.Sources...)
		parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, map[string]any{
			"result": result.Observation,
		}))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	resp, err = g.callModel(ctx, contents, config)
	if err != nil {
		return "", nil, fmt.Errorf("model call after tools: %w", err)
	}
	if extra := resp.FunctionCalls(); len(extra) > 0 {
		g.logger.Debug("tool requests after final round ignored", "count", len(extra))
	}
	return textOrFallback(resp), sources, nil
}

// callModel applies rate limiting and invokes the model once.
func (g *Generator) callModel(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	resp, err := g.client.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("model returned no candidates")
	}
	return resp, nil
}

// textOrFallback extracts the response text, substituting the fallback
// message when the model produced none.
func textOrFallback(resp *genai.GenerateContentResponse) string {
	if text := resp.Text(); text != "" {
		return text
	}
	return FallbackResponseMessage
}
