package vectorize

import (
	"context"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

// Embedder vectorizes a batch of sentences in one call, preserving order.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
