package vibematch

import (
	"errors"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidProfile         = domain.ErrInvalidProfile
	ErrEmptyInput             = domain.ErrEmptyInput
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrHistoryWrite           = domain.ErrHistoryWrite
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
)

// ErrNotConfigured is returned when an operation needs a component
// (database or embedder) the client was built without.
var ErrNotConfigured = errors.New("vibematch: not configured")
