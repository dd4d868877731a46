package history

import (
	"context"

	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
)

// Ledger is the append-only exposure store, scoped per target.
type Ledger interface {
	Append(ctx context.Context, targetID, batchID string, candidateIDs []string) error
	Read(ctx context.Context, targetID string) (exposure.Ledger, error)
}
