package recommend

import (
	"context"

	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
	"github.com/kailas-cloud/vibematch/internal/domain/recommendation"
)

// Ranker orders eligible candidates for a target.
type Ranker interface {
	Rank(
		targetID string, candidates []recommendation.Candidate,
		ledger exposure.Ledger, excluded exposure.Exclusions, n int,
	) (recommendation.Result, error)
}

// History reads and appends the per-target exposure ledger.
type History interface {
	Exposure(ctx context.Context, targetID string) (exposure.Ledger, error)
	Record(ctx context.Context, targetID string, ids []string) error
}

// ExclusionReader returns the stored ineligible candidates for a target.
type ExclusionReader interface {
	Read(ctx context.Context, targetID string) (exposure.Exclusions, error)
}
