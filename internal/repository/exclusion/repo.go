// Package exclusion stores the candidates a target must never be shown.
package exclusion

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
)

// store is the consumer interface for exclusion sets (ISP).
type store interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo keeps one set per target holding liked, matched and blocked user ids.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates an exclusion repository. An empty prefix falls back to domain.KeyPrefix.
func New(s store, keyPrefix string) *Repo {
	if keyPrefix == "" {
		keyPrefix = domain.KeyPrefix
	}
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Read returns the target's exclusion set. A target with no set excludes nobody.
func (r *Repo) Read(ctx context.Context, targetID string) (exposure.Exclusions, error) {
	ids, err := r.store.SMembers(ctx, r.key(targetID))
	if err != nil {
		return nil, fmt.Errorf("read exclusions: %w", err)
	}
	return exposure.NewExclusions(ids...), nil
}

// Add excludes ids for the target from now on.
func (r *Repo) Add(ctx context.Context, targetID string, ids ...string) error {
	if err := r.store.SAdd(ctx, r.key(targetID), ids...); err != nil {
		return fmt.Errorf("add exclusions: %w", err)
	}
	return nil
}

func (r *Repo) key(targetID string) string {
	return r.keyPrefix + "exclusions:" + targetID
}
