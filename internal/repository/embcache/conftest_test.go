package embcache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/vibematch/internal/db"
	"github.com/kailas-cloud/vibematch/internal/domain"
)

// fakeEmbedder returns a one-dimensional embedding equal to the text length.
type fakeEmbedder struct {
	tokensPerText int
	err           error
	short         bool
	calls         [][]string
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	embs := make([][]float32, len(texts))
	for i, t := range texts {
		embs[i] = []float32{float32(len(t))}
	}
	if f.short {
		embs = embs[1:]
	}
	n := f.tokensPerText * len(texts)
	return domain.BatchEmbeddingResult{Embeddings: embs, PromptTokens: n, TotalTokens: n}, nil
}

// memKV is an in-memory store. Keys under the broken prefix fail every operation.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	broken string
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken != "" && strings.HasPrefix(key, m.broken) {
		return nil, &db.Error{Op: db.OpGet, Err: context.DeadlineExceeded}
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken != "" && strings.HasPrefix(key, m.broken) {
		return &db.Error{Op: db.OpSet, Err: context.DeadlineExceeded}
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *fakeEmbedder) (*CachedEmbedder, *memKV) {
	t.Helper()
	kv := newMemKV()
	return New(inner, kv, "test:", nil, nil), kv
}
