package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// Implementations must preserve input order.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Add appends one embedding and its token usage.
func (r *BatchEmbeddingResult) Add(e EmbeddingResult) {
	r.Embeddings = append(r.Embeddings, e.Embedding)
	r.PromptTokens += e.PromptTokens
	r.TotalTokens += e.TotalTokens
}

// Merge appends another batch, keeping order.
func (r *BatchEmbeddingResult) Merge(o BatchEmbeddingResult) {
	r.Embeddings = append(r.Embeddings, o.Embeddings...)
	r.PromptTokens += o.PromptTokens
	r.TotalTokens += o.TotalTokens
}

// BatchFallback вызывает Embed по одному на каждый текст, для провайдеров без batch.
// Stops at the first error or when ctx is done.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	out := BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		out.Add(res)
	}
	return out, nil
}

// AsBatch returns e itself when it batches natively, otherwise a per-text adapter.
func AsBatch(e Embedder) BatchEmbedder {
	if be, ok := e.(BatchEmbedder); ok {
		return be
	}
	return fallbackBatcher{inner: e}
}

type fallbackBatcher struct {
	inner Embedder
}

func (f fallbackBatcher) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return BatchFallback(ctx, f.inner, texts)
}
