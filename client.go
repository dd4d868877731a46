package vibematch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/db"
	dbRedis "github.com/kailas-cloud/vibematch/internal/db/redis"
	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/profile"
	"github.com/kailas-cloud/vibematch/internal/domain/vector"
	"github.com/kailas-cloud/vibematch/internal/metrics"
	"github.com/kailas-cloud/vibematch/internal/repository/embcache"
	exclusionrepo "github.com/kailas-cloud/vibematch/internal/repository/exclusion"
	exposurerepo "github.com/kailas-cloud/vibematch/internal/repository/exposure"
	openaiEmb "github.com/kailas-cloud/vibematch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vibematch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vibematch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/vibematch/internal/usecase/history"
	"github.com/kailas-cloud/vibematch/internal/usecase/rank"
	recommenduc "github.com/kailas-cloud/vibematch/internal/usecase/recommend"
	vectorizeuc "github.com/kailas-cloud/vibematch/internal/usecase/vectorize"
)

const defaultReadinessTimeout = 10 * time.Second

// Внутренние интерфейсы для подмены в тестах.
type vectorizeUseCase interface {
	Vectorize(ctx context.Context, p *profile.Profile) (vector.Vector, error)
}

type recommendUseCase interface {
	Recommend(ctx context.Context, req *recommenduc.Request) (recommenduc.Response, error)
}

type exclusionStore interface {
	Add(ctx context.Context, targetID string, ids ...string) error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the vibematch entry point. It is safe for concurrent use.
type Client struct {
	store        db.Store
	vectorizeSvc vectorizeUseCase
	recommendSvc recommendUseCase
	exclusions   exclusionStore
	healthSvc    healthUseCase
	obs          *observer
}

// New creates a Client. With WithValkey or WithRedis it connects to the
// database, using ctx for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: domain.KeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{Driver: cfg.driver, Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("vibematch: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("vibematch: database not ready: %w", err)
		}
		store = s
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

// wireClient builds the services on top of an optional store.
func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{store: store, obs: obs}

	health := healthuc.New(store, nil)

	if emb, checker := buildEmbedder(store, cfg); emb != nil {
		c.vectorizeSvc = vectorizeuc.New(emb, nil)
		if checker != nil {
			health = health.WithCheck("embedding", checker.HealthCheck)
		}
	}
	c.healthSvc = health

	ranker := rank.New()
	if cfg.boost != nil {
		ranker = ranker.WithBoost(*cfg.boost)
	}

	var history recommenduc.History
	var exclusions recommenduc.ExclusionReader
	if store != nil {
		ex := exclusionrepo.New(store, cfg.keyPrefix)
		exclusions = ex
		c.exclusions = ex
		if !cfg.noHistory {
			history = historyuc.New(exposurerepo.New(store, cfg.keyPrefix))
		}
	}

	c.recommendSvc = recommenduc.New(ranker, history, exclusions, nil).
		WithLimits(cfg.defaultLimit, cfg.maxLimit)

	return c, nil
}

// buildEmbedder assembles provider -> breaker -> cache. The checker is the
// bare provider when it supports health checks.
func buildEmbedder(store db.Store, cfg *clientConfig) (vectorizeuc.Embedder, domain.HealthChecker) {
	var (
		base     domain.BatchEmbedder
		checker  domain.HealthChecker
		provider = "custom"
		model    = "custom"
		dims     int
	)
	switch {
	case cfg.embedder != nil:
		base = &embedderAdapter{inner: cfg.embedder}
		checker, _ = cfg.embedder.(domain.HealthChecker)
		if m, ok := cfg.embedder.(ModelNamer); ok {
			model = m.Model()
		}
	case cfg.openai != nil:
		provider = cfg.openai.Provider
		if provider == "" {
			provider = "openai"
		}
		model, dims = cfg.openai.Model, cfg.openai.Dimensions
		if model == "" {
			model = domain.DefaultModel
		}
		o := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.openai.APIKey,
			BaseURL:    cfg.openai.BaseURL,
			Model:      model,
			Dimensions: cfg.openai.Dimensions,
			Provider:   provider,
		})
		base, checker = o, o
	default:
		return nil, nil
	}

	var emb vectorizeuc.Embedder = embeddinguc.NewBreakerEmbedder(
		base, provider, embeddinguc.DefaultBreakerConfig(), zap.NewNop(),
	)
	if store != nil {
		emb = embcache.New(emb, store, cfg.keyPrefix, metrics.EmbeddingCacheTotal, nil).
			WithModel(model, dims).
			WithTTL(cfg.cacheTTL)
	}
	return emb, checker
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("ping: database: %w", ErrNotConfigured)
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// HealthStatus represents the aggregated health of the client's components.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component -> "ok"/"error"
}

// Health checks the database and embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

// Vectorize turns a profile into the mean embedding of its sentences.
func (c *Client) Vectorize(ctx context.Context, p Profile) (vec []float32, err error) {
	start := time.Now()
	defer func() { c.obs.observe("vectorize", start, err, "user_id", p.UserID) }()

	if c.vectorizeSvc == nil {
		return nil, fmt.Errorf("vectorize: embedder: %w", ErrNotConfigured)
	}
	dp, err := p.toDomain()
	if err != nil {
		return nil, err
	}
	v, err := c.vectorizeSvc.Vectorize(ctx, &dp)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Recommend ranks req.Candidates for req.TargetID. A target missing from the
// candidates yields an empty result with TargetFound=false, not an error.
func (c *Client) Recommend(ctx context.Context, req RecommendRequest) (res Recommendations, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("recommend", start, err,
			"target_user_id", req.TargetID, "candidates", len(req.Candidates), "served", len(res.Items))
	}()

	resp, err := c.recommendSvc.Recommend(ctx, req.toDomain())
	if err != nil {
		return Recommendations{}, err
	}
	return recommendationsFromDomain(&resp), nil
}

// Exclude stores ids that must never be recommended to targetID again.
func (c *Client) Exclude(ctx context.Context, targetID string, ids ...string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("exclude", start, err, "target_user_id", targetID) }()

	if c.exclusions == nil {
		return fmt.Errorf("exclude: database: %w", ErrNotConfigured)
	}
	if err := c.exclusions.Add(ctx, targetID, ids...); err != nil {
		return fmt.Errorf("exclude for %s: %w", targetID, err)
	}
	return nil
}
