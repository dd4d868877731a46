// Package vectorize turns a user profile into its feature vector.
package vectorize

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/profile"
	"github.com/kailas-cloud/vibematch/internal/domain/vector"
	"github.com/kailas-cloud/vibematch/internal/metrics"
)

// Service builds profile sentences, embeds them as one batch and averages the result.
type Service struct {
	embedder Embedder
	logger   *zap.Logger
}

// New creates a vectorize service.
func New(embedder Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, logger: logger}
}

// Vectorize returns the element-wise mean of the embeddings of the profile's sentences.
func (s *Service) Vectorize(ctx context.Context, p *profile.Profile) (vector.Vector, error) {
	sentences := p.Sentences()
	if len(sentences) == 0 {
		return nil, fmt.Errorf("profile %s: %w", p.UserID, domain.ErrEmptyInput)
	}
	metrics.ProfileSentences.Observe(float64(len(sentences)))

	res, err := s.embedder.BatchEmbed(ctx, sentences)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return nil, fmt.Errorf("embed profile %s: %w", p.UserID, err)
		}
		return nil, fmt.Errorf("embed profile %s: %w: %w", p.UserID, domain.ErrEmbeddingProviderError, err)
	}
	if len(res.Embeddings) != len(sentences) {
		return nil, fmt.Errorf("embed profile %s: got %d embeddings for %d sentences: %w",
			p.UserID, len(res.Embeddings), len(sentences), domain.ErrEmbeddingProviderError)
	}

	domain.UsageFromContext(ctx).Record(res.TotalTokens, len(sentences))

	v, err := vector.Mean(vector.FromEmbeddings(res.Embeddings))
	if err != nil {
		s.logger.Error("embedding batch has inconsistent dimensions",
			zap.String("user_id", p.UserID), zap.Error(err))
		return nil, fmt.Errorf("average profile %s: %w", p.UserID, err)
	}

	s.logger.Debug("profile vectorized",
		zap.String("user_id", p.UserID),
		zap.Int("sentences", len(sentences)),
		zap.Int("dimensions", v.Dim()),
		zap.Int("tokens", res.TotalTokens),
	)
	return v, nil
}
