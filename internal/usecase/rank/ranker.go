// Package rank orders eligible candidates for a target user.
//
// Ordering is exposure first (fewer prior impressions rank higher), then
// boosted similarity. The boost only affects order; reported scores are the
// raw cosine similarity.
package rank

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
	"github.com/kailas-cloud/vibematch/internal/domain/recommendation"
	"github.com/kailas-cloud/vibematch/internal/domain/vector"
)

// Ranker is a pure, stateless ranking policy.
type Ranker struct {
	boost        float64
	defaultLimit int
}

// New creates a Ranker with the production defaults.
func New() *Ranker {
	cfg := domain.DefaultRankingConfig()
	return &Ranker{boost: cfg.OppositeGenderBoost, defaultLimit: cfg.DefaultLimit}
}

// WithBoost overrides the additive opposite-gender boost.
func (r *Ranker) WithBoost(boost float64) *Ranker {
	r.boost = boost
	return r
}

// WithDefaultLimit overrides the limit used when the caller passes n <= 0.
func (r *Ranker) WithDefaultLimit(n int) *Ranker {
	if n > 0 {
		r.defaultLimit = n
	}
	return r
}

// Boost returns the configured opposite-gender boost.
func (r *Ranker) Boost() float64 { return r.boost }

// Rank filters, scores and orders candidates for targetID and keeps the first n.
// A missing target yields an empty result with TargetFound=false, not an error.
// A candidate whose vector length differs from the target's fails the whole request.
// Candidate ids form a set: repeated ids are scored once, from their first occurrence.
func (r *Ranker) Rank(
	targetID string,
	candidates []recommendation.Candidate,
	ledger exposure.Ledger,
	excluded exposure.Exclusions,
	n int,
) (recommendation.Result, error) {
	res := recommendation.Result{TargetID: targetID}

	target, ok := findTarget(targetID, candidates)
	if !ok {
		return res, nil
	}
	res.TargetFound = true

	if n <= 0 {
		n = r.defaultLimit
	}

	items := make([]recommendation.Item, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.UserID == targetID || excluded.Has(c.UserID) {
			continue
		}
		// First occurrence wins; later duplicates are ignored.
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}

		sim, err := vector.Cosine(target.Vector, c.Vector)
		if err != nil {
			return recommendation.Result{}, fmt.Errorf("score candidate %s: %w", c.UserID, err)
		}

		boosted := sim
		if target.Gender.Opposite(c.Gender) {
			boosted += r.boost
		}

		items = append(items, recommendation.NewItem(c.UserID, sim, boosted, ledger.Count(c.UserID)))
	}
	res.Considered = len(items)

	// Stable: full ties keep the caller's candidate order.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Exposure() != items[j].Exposure() {
			return items[i].Exposure() < items[j].Exposure()
		}
		return items[i].Boosted() > items[j].Boosted()
	})

	if len(items) > n {
		items = items[:n]
	}
	res.Items = items

	return res, nil
}

func findTarget(id string, candidates []recommendation.Candidate) (recommendation.Candidate, bool) {
	for _, c := range candidates {
		if c.UserID == id {
			return c, true
		}
	}
	return recommendation.Candidate{}, false
}
