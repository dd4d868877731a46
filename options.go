package vibematch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "valkey" or "redis"
	addrs     []string
	password  string
	keyPrefix string

	embedder Embedder
	openai   *OpenAIConfig
	cacheTTL time.Duration

	boost        *float64
	defaultLimit int
	maxLimit     int
	noHistory    bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey connects the client to a Valkey instance for history, exclusions and the embedding cache.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis connects the client to a Redis instance for history, exclusions and the embedding cache.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix namespaces every key the client writes. Default: "vibematch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets a custom text embedding provider.
// Takes precedence over WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI uses the built-in OpenAI-compatible embedding provider.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &cfg
	})
}

// WithEmbeddingCacheTTL sets the lifetime of cached sentence embeddings. Zero keeps them forever.
func WithEmbeddingCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithBoost overrides the additive opposite-gender boost. Default: 0.10.
func WithBoost(boost float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.boost = &boost
	})
}

// WithLimits sets the default and maximum number of recommendations. Defaults: 10 and 100.
func WithLimits(defaultLimit, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	})
}

// WithoutHistory disables the stored exposure ledger even when a database is configured.
// Exposure then comes only from RecommendRequest.History.
func WithoutHistory() Option {
	return optionFunc(func(c *clientConfig) {
		c.noHistory = true
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
