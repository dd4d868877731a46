package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/metrics"
)

// BreakerConfig configures the provider circuit breaker.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
}

// DefaultBreakerConfig returns conservative breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// BreakerEmbedder stops calling a failing provider until it recovers.
// Rejected calls fail fast with domain.ErrEmbeddingProviderError.
type BreakerEmbedder struct {
	inner    domain.BatchEmbedder
	cb       *gobreaker.CircuitBreaker[domain.BatchEmbeddingResult]
	provider string
}

// NewBreakerEmbedder wraps inner with a circuit breaker named after the provider.
func NewBreakerEmbedder(
	inner domain.BatchEmbedder, provider string, cfg BreakerConfig, logger *zap.Logger,
) *BreakerEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	metrics.EmbeddingBreakerState.WithLabelValues(provider).Set(float64(gobreaker.StateClosed))

	settings := gobreaker.Settings{
		Name:        "embedding:" + provider,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Caller cancellation is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.EmbeddingBreakerState.WithLabelValues(provider).Set(float64(to))
			logger.Warn("Embedding circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerEmbedder{
		inner:    inner,
		cb:       gobreaker.NewCircuitBreaker[domain.BatchEmbeddingResult](settings),
		provider: provider,
	}
}

// BatchEmbed runs inner through the breaker.
func (b *BreakerEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	res, err := b.cb.Execute(func() (domain.BatchEmbeddingResult, error) {
		return b.inner.BatchEmbed(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("provider %s unavailable: %w: %w",
				b.provider, domain.ErrEmbeddingProviderError, err)
		}
		return domain.BatchEmbeddingResult{}, err
	}
	return res, nil
}

// Embed embeds a single text through the breaker.
func (b *BreakerEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := b.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if len(res.Embeddings) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// State reports the breaker state for health checks.
func (b *BreakerEmbedder) State() gobreaker.State {
	return b.cb.State()
}
