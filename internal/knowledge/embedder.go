package knowledge

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Embedder converts text into vector embeddings. The returned slice has one
// vector per input text, in the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// embedBatchSize caps how many texts go into a single embedding request.
const embedBatchSize = 100

// GeminiEmbedder implements Embedder on top of the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int32
}

// NewGeminiEmbedder creates an Embedder backed by the given Gemini model.
// dim selects the output dimensionality and must match the vector columns
// in the database schema.
func NewGeminiEmbedder(client *genai.Client, model string, dim int) (*GeminiEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("embedder model is required")
	}
	if dim < 1 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	return &GeminiEmbedder{client: client, model: model, dim: int32(dim)}, nil
}

// Embed generates embeddings for the given texts, batching requests to stay
// under the API's per-call input limit.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(e.dim),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding batch starting at %d: %w", start, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embedding batch starting at %d: got %d embeddings for %d texts",
				start, len(resp.Embeddings), end-start)
		}

		for i, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("empty embedding for text %d", start+i)
			}
			out = append(out, emb.Values)
		}
	}
	return out, nil
}
