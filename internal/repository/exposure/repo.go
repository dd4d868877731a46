// Package exposure persists the per-target exposure ledger as a stream.
package exposure

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vibematch/internal/db"
	"github.com/kailas-cloud/vibematch/internal/domain"
	domexp "github.com/kailas-cloud/vibematch/internal/domain/exposure"
	"github.com/kailas-cloud/vibematch/internal/metrics"
)

// Stream entry fields.
const (
	fieldCandidate = "candidate"
	fieldBatch     = "batch"
)

// store is the consumer interface for the ledger (ISP).
type store interface {
	XAddMulti(ctx context.Context, key string, entries [][]db.FieldValue) error
	XRange(ctx context.Context, key string) ([]db.StreamEntry, error)
}

// Repo implements usecase/history.Ledger. One stream per target, one entry per exposure.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a ledger repository. An empty prefix falls back to domain.KeyPrefix.
func New(s store, keyPrefix string) *Repo {
	if keyPrefix == "" {
		keyPrefix = domain.KeyPrefix
	}
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Append writes one entry per candidate id, all tagged with batchID.
func (r *Repo) Append(ctx context.Context, targetID, batchID string, candidateIDs []string) error {
	entries := make([][]db.FieldValue, len(candidateIDs))
	for i, id := range candidateIDs {
		entries[i] = []db.FieldValue{
			{Field: fieldCandidate, Value: id},
			{Field: fieldBatch, Value: batchID},
		}
	}
	if err := r.store.XAddMulti(ctx, r.key(targetID), entries); err != nil {
		return fmt.Errorf("append exposure: %w", err)
	}
	return nil
}

// Read aggregates the target's stream into exposure counts.
func (r *Repo) Read(ctx context.Context, targetID string) (domexp.Ledger, error) {
	raw, err := r.store.XRange(ctx, r.key(targetID))
	if err != nil {
		return nil, fmt.Errorf("read exposure: %w", err)
	}
	metrics.ExposureLedgerEntries.Observe(float64(len(raw)))

	entries := make([]domexp.Entry, len(raw))
	for i, e := range raw {
		entries[i] = domexp.Entry{CandidateID: e.Fields[fieldCandidate], BatchID: e.Fields[fieldBatch]}
	}
	return domexp.Aggregate(entries), nil
}

func (r *Repo) key(targetID string) string {
	return r.keyPrefix + "exposure:" + targetID
}
