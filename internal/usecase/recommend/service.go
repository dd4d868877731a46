// Package recommend runs one recommendation request: read state, rank, record.
package recommend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
	"github.com/kailas-cloud/vibematch/internal/domain/recommendation"
	"github.com/kailas-cloud/vibematch/internal/metrics"
)

// Request is one ranking call.
type Request struct {
	TargetID   string
	Candidates []recommendation.Candidate
	// History is a caller-supplied exposure snapshot. Nil means read the ledger store.
	History exposure.Ledger
	// Liked are extra exclusions merged with the stored set.
	Liked []string
	Limit int
}

// Response carries the ranking result. HistoryErr is set when the result was
// computed but could not be recorded; the result is still valid.
type Response struct {
	Result     recommendation.Result
	HistoryErr error
}

// Service orchestrates ranking with exposure bookkeeping.
type Service struct {
	ranker       Ranker
	history      History
	exclusions   ExclusionReader
	logger       *zap.Logger
	defaultLimit int
	maxLimit     int
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// New creates a recommend service. history and exclusions may be nil when
// the deployment keeps no state.
func New(ranker Ranker, history History, exclusions ExclusionReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := domain.DefaultRankingConfig()
	return &Service{
		ranker:       ranker,
		history:      history,
		exclusions:   exclusions,
		logger:       logger,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
}

// WithLimits configures the default and maximum number of recommendations.
func (s *Service) WithLimits(defaultLimit, maxLimit int) *Service {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// WithTimeouts bounds store reads and ledger appends. Zero leaves the caller's deadline in place.
func (s *Service) WithTimeouts(read, write time.Duration) *Service {
	s.readTimeout = read
	s.writeTimeout = write
	return s
}

// Recommend ranks req.Candidates for req.TargetID and records the served ids.
func (s *Service) Recommend(ctx context.Context, req *Request) (Response, error) {
	limit, err := s.limit(req.Limit)
	if err != nil {
		metrics.RankingRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return Response{}, err
	}

	ledger, excluded, err := s.readState(ctx, req)
	if err != nil {
		metrics.RankingRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return Response{}, err
	}

	start := time.Now()
	res, err := s.ranker.Rank(req.TargetID, req.Candidates, ledger, excluded, limit)
	metrics.RankingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RankingRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("Ranking failed",
			zap.String("target_user_id", req.TargetID),
			zap.Int("candidates", len(req.Candidates)),
			zap.Error(err),
		)
		return Response{}, fmt.Errorf("rank for %s: %w", req.TargetID, err)
	}

	if !res.TargetFound {
		metrics.RankingRequestsTotal.WithLabelValues(metrics.OutcomeTargetNotFound).Inc()
		s.logger.Info("Target not among candidates", zap.String("target_user_id", req.TargetID))
		return Response{Result: res}, nil
	}

	metrics.RankingRequestsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.RankingCandidates.WithLabelValues("supplied").Observe(float64(len(req.Candidates)))
	metrics.RankingCandidates.WithLabelValues("eligible").Observe(float64(res.Considered))
	metrics.RecommendationsServedTotal.Add(float64(len(res.Items)))

	resp := Response{Result: res}
	if herr := s.record(ctx, req.TargetID, res.UserIDs()); herr != nil {
		metrics.HistoryWriteFailuresTotal.Inc()
		s.logger.Warn("Exposure history not recorded",
			zap.String("target_user_id", req.TargetID),
			zap.Int("count", len(res.Items)),
			zap.Error(herr),
		)
		resp.HistoryErr = herr
	}
	return resp, nil
}

func (s *Service) limit(n int) (int, error) {
	switch {
	case n == 0:
		return s.defaultLimit, nil
	case n < 1 || n > s.maxLimit:
		return 0, fmt.Errorf("n_recommendations must be between 1 and %d, got %d: %w",
			s.maxLimit, n, domain.ErrInvalidRequest)
	}
	return n, nil
}

// readState loads the exposure snapshot and exclusion set concurrently.
func (s *Service) readState(ctx context.Context, req *Request) (exposure.Ledger, exposure.Exclusions, error) {
	ledger := req.History
	excluded := exposure.NewExclusions(req.Liked...)

	readCtx, cancel := withTimeout(ctx, s.readTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(readCtx)

	if ledger == nil && s.history != nil {
		g.Go(func() error {
			l, err := s.history.Exposure(gctx, req.TargetID)
			if err != nil {
				return fmt.Errorf("read exposure: %w", err)
			}
			ledger = l
			return nil
		})
	}

	var stored exposure.Exclusions
	if s.exclusions != nil {
		g.Go(func() error {
			ex, err := s.exclusions.Read(gctx, req.TargetID)
			if err != nil {
				return fmt.Errorf("read exclusions for %s: %w: %w", req.TargetID, domain.ErrStoreUnavailable, err)
			}
			stored = ex
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Store read failed", zap.String("target_user_id", req.TargetID), zap.Error(err))
		return nil, nil, err
	}

	for id := range stored {
		excluded.Add(id)
	}
	return ledger, excluded, nil
}

func (s *Service) record(ctx context.Context, targetID string, ids []string) error {
	if s.history == nil || len(ids) == 0 {
		return nil
	}
	// Detached from client cancellation, bounded by writeTimeout only.
	writeCtx, cancel := withTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()
	return s.history.Record(writeCtx, targetID, ids)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
