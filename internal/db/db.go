package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	KVStore
	StreamStore
	SetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// FieldValue is one field of a stream entry. Order is preserved on write.
type FieldValue struct {
	Field string
	Value string
}

// StreamEntry is a single stored stream entry.
type StreamEntry struct {
	ID     string
	Fields map[string]string
}

// StreamStore provides append-only stream operations.
type StreamStore interface {
	// XAddMulti appends every entry to the stream at key atomically, in a single round-trip.
	XAddMulti(ctx context.Context, key string, entries [][]FieldValue) error
	// XRange returns all entries of the stream at key, oldest first.
	// A missing key yields an empty slice.
	XRange(ctx context.Context, key string) ([]StreamEntry, error)
}

// SetStore provides unordered set operations.
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}
