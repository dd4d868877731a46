package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProfile signals a profile missing a required field.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrEmptyInput signals a profile with nothing to vectorize.
	ErrEmptyInput = errors.New("empty input")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidRequest signals a malformed ranking or vectorization request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrHistoryWrite signals a failed exposure ledger append.
	ErrHistoryWrite = errors.New("history write failed")
	// ErrStoreUnavailable signals a failed read from the ledger or exclusion store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InvalidProfileError wraps ErrInvalidProfile with the offending field.
type InvalidProfileError struct {
	Field string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", ErrInvalidProfile.Error(), e.Field)
}

func (e *InvalidProfileError) Unwrap() error { return ErrInvalidProfile }

// NewInvalidProfile creates an invalid profile error for the given field.
func NewInvalidProfile(field string) error {
	return &InvalidProfileError{Field: field}
}

// DimensionMismatchError wraps ErrVectorDimMismatch with both vector lengths.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %d != %d", ErrVectorDimMismatch.Error(), e.Left, e.Right)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(left, right int) error {
	return &DimensionMismatchError{Left: left, Right: right}
}

// HistoryWriteError wraps ErrHistoryWrite with the target and the store failure.
type HistoryWriteError struct {
	TargetID string
	Count    int
	Err      error
}

func (e *HistoryWriteError) Error() string {
	return fmt.Sprintf("%s: target %s (%d entries): %v",
		ErrHistoryWrite.Error(), e.TargetID, e.Count, e.Err)
}

// Unwrap exposes both the sentinel and the underlying store error.
func (e *HistoryWriteError) Unwrap() []error { return []error{ErrHistoryWrite, e.Err} }
