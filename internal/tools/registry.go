package tools

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Registry maps tool names to implementations and dispatches the model's
// function calls. Execution failures are absorbed into the observation text:
// the model always receives something it can react to in natural language,
// never a hard error.
//
// Registry is not safe for concurrent registration; register everything at
// startup. Execute is safe for concurrent use.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Declarations returns the function declarations of all registered tools in
// registration order, for inclusion in a model request.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].Declaration())
	}
	return decls
}

// Execute runs the named tool. An unknown name or a failing tool yields an
// explanatory observation with no sources.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return Result{Observation: fmt.Sprintf("Tool '%s' not found.", name)}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return Result{Observation: fmt.Sprintf("Tool '%s' failed: %v", name, err)}
	}
	return result
}
