// Package history records which candidates were shown to which target.
package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
)

// Service appends exposures to the ledger. Entries are never deduplicated:
// recording the same candidate twice counts twice.
type Service struct {
	ledger Ledger
	newID  func() string
}

// New creates a history service.
func New(ledger Ledger) *Service {
	return &Service{ledger: ledger, newID: uuid.NewString}
}

// Record appends one ledger entry per id, tagged with a fresh batch id.
func (s *Service) Record(ctx context.Context, targetID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.ledger.Append(ctx, targetID, s.newID(), ids); err != nil {
		return &domain.HistoryWriteError{TargetID: targetID, Count: len(ids), Err: err}
	}
	return nil
}

// Exposure returns the current exposure counts for a target.
func (s *Service) Exposure(ctx context.Context, targetID string) (exposure.Ledger, error) {
	l, err := s.ledger.Read(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("read exposure for %s: %w: %w", targetID, domain.ErrStoreUnavailable, err)
	}
	return l, nil
}
