package embcache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

func TestBatchEmbed_ColdThenWarm(t *testing.T) {
	inner := &fakeEmbedder{tokensPerText: 4}
	ce, kv := newTestCachedEmbedder(t, inner)
	ctx := context.Background()
	texts := []string{"I like music", "My Vibe is chill"}

	cold, err := ce.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cold.TotalTokens != 8 {
		t.Errorf("expected 8 tokens on cold cache, got %d", cold.TotalTokens)
	}
	if len(kv.data) != 2 {
		t.Errorf("expected 2 cached entries, got %d", len(kv.data))
	}

	warm, err := ce.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warm.TotalTokens != 0 {
		t.Errorf("expected 0 tokens on warm cache, got %d", warm.TotalTokens)
	}
	if len(inner.calls) != 1 {
		t.Errorf("expected inner called once, got %d", len(inner.calls))
	}
	if !reflect.DeepEqual(cold.Embeddings, warm.Embeddings) {
		t.Errorf("cached embeddings differ: %v vs %v", cold.Embeddings, warm.Embeddings)
	}
}

func TestBatchEmbed_OnlyMissesReachInner(t *testing.T) {
	inner := &fakeEmbedder{tokensPerText: 3}
	ce, _ := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	if _, err := ce.BatchEmbed(ctx, []string{"bb"}); err != nil {
		t.Fatal(err)
	}

	res, err := ce.BatchEmbed(ctx, []string{"a", "bb", "cccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := inner.calls[1]; !reflect.DeepEqual(got, []string{"a", "cccc"}) {
		t.Errorf("expected only misses sent, got %v", got)
	}
	want := [][]float32{{1}, {2}, {4}}
	if !reflect.DeepEqual(res.Embeddings, want) {
		t.Errorf("order not preserved: %v", res.Embeddings)
	}
	if res.TotalTokens != 6 {
		t.Errorf("expected 6 tokens (2 misses * 3), got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_DuplicateTextsEmbeddedOnce(t *testing.T) {
	inner := &fakeEmbedder{}
	ce, _ := newTestCachedEmbedder(t, inner)

	res, err := ce.BatchEmbed(context.Background(), []string{"x", "yy", "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(inner.calls[0], []string{"x", "yy"}) {
		t.Errorf("expected deduplicated misses, got %v", inner.calls[0])
	}
	if len(res.Embeddings) != 3 || res.Embeddings[2][0] != 1 {
		t.Errorf("duplicate slot not filled: %v", res.Embeddings)
	}
}

func TestBatchEmbed_StoreFailureFallsThrough(t *testing.T) {
	inner := &fakeEmbedder{tokensPerText: 1}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.broken = "test:"

	res, err := ce.BatchEmbed(context.Background(), []string{"abc"})
	if err != nil {
		t.Fatalf("cache failures must not fail embedding: %v", err)
	}
	if res.Embeddings[0][0] != 3 {
		t.Errorf("unexpected embedding: %v", res.Embeddings)
	}
}

func TestBatchEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &fakeEmbedder{}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.data[ce.cacheKey("abc")] = []byte{1, 2, 3}

	res, err := ce.BatchEmbed(context.Background(), []string{"abc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.calls) != 1 || res.Embeddings[0][0] != 3 {
		t.Errorf("expected corrupt entry re-embedded, calls=%v res=%v", inner.calls, res.Embeddings)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("api down")}
	ce, kv := newTestCachedEmbedder(t, inner)

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error from inner embedder")
	}
	if len(kv.data) != 0 {
		t.Error("nothing must be cached on failure")
	}
}

func TestBatchEmbed_InnerCountMismatch(t *testing.T) {
	inner := &fakeEmbedder{short: true}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	inner := &fakeEmbedder{}
	ce, _ := newTestCachedEmbedder(t, inner)

	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || len(inner.calls) != 0 {
		t.Errorf("expected no-op for empty input")
	}
}

func TestEmbed_Single(t *testing.T) {
	inner := &fakeEmbedder{tokensPerText: 2}
	ce, _ := newTestCachedEmbedder(t, inner)

	res, err := ce.Embed(context.Background(), "four")
	if err != nil {
		t.Fatal(err)
	}
	if res.Embedding[0] != 4 || res.TotalTokens != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestKeysAndTTL(t *testing.T) {
	inner := &fakeEmbedder{}
	kv := newMemKV()
	ce := New(inner, kv, "", nil, nil).WithModel("all-MiniLM-L6-v2", 384).WithTTL(time.Hour)

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if len(kv.ttls) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(kv.ttls))
	}
	for k, ttl := range kv.ttls {
		if !strings.HasPrefix(k, domain.KeyPrefix+"emb_cache:all-MiniLM-L6-v2:384:") {
			t.Errorf("unexpected key %q", k)
		}
		if ttl != time.Hour {
			t.Errorf("expected ttl 1h, got %v", ttl)
		}
	}
}

// dimEmbedder returns vectors of a fixed dimension.
type dimEmbedder struct {
	dims  int
	calls int
}

func (d *dimEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	d.calls++
	embs := make([][]float32, len(texts))
	for i := range texts {
		embs[i] = make([]float32, d.dims)
	}
	return domain.BatchEmbeddingResult{Embeddings: embs}, nil
}

func TestModelSwitchDoesNotMixEmbeddings(t *testing.T) {
	kv := newMemKV()
	ctx := context.Background()

	small := &dimEmbedder{dims: 384}
	before := New(small, kv, "test:", nil, nil).WithModel("all-MiniLM-L6-v2", 0)
	if _, err := before.BatchEmbed(ctx, []string{"I like hiking"}); err != nil {
		t.Fatal(err)
	}

	large := &dimEmbedder{dims: 1536}
	after := New(large, kv, "test:", nil, nil).WithModel("text-embedding-3-small", 0)
	res, err := after.BatchEmbed(ctx, []string{"I like hiking", "I like jazz"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, e := range res.Embeddings {
		if len(e) != 1536 {
			t.Errorf("embedding %d has %d dims, want 1536", i, len(e))
		}
	}
	if len(kv.data) != 3 {
		t.Errorf("expected 3 entries across two models, got %d", len(kv.data))
	}

	// The first model still hits its own entry.
	if _, err := before.BatchEmbed(ctx, []string{"I like hiking"}); err != nil {
		t.Fatal(err)
	}
	if small.calls != 1 {
		t.Errorf("expected a cache hit for the first model, got %d inner calls", small.calls)
	}
}

func TestDimensionsScopeCache(t *testing.T) {
	kv := newMemKV()
	ctx := context.Background()

	full := &dimEmbedder{dims: 1536}
	if _, err := New(full, kv, "test:", nil, nil).WithModel("m", 0).BatchEmbed(ctx, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	cut := &dimEmbedder{dims: 256}
	res, err := New(cut, kv, "test:", nil, nil).WithModel("m", 256).BatchEmbed(ctx, []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if cut.calls != 1 || len(res.Embeddings[0]) != 256 {
		t.Errorf("expected a miss for a different dimension, calls=%d dims=%d", cut.calls, len(res.Embeddings[0]))
	}
}

func TestCacheMetrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &fakeEmbedder{}
	ce := New(inner, newMemKV(), "m:", counter, nil)
	ctx := context.Background()

	_, _ = ce.BatchEmbed(ctx, []string{"a", "b"})
	_, _ = ce.BatchEmbed(ctx, []string{"a"})

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 2 {
		t.Errorf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
}

func TestVectorCodec(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	got, err := decodeVector(encodeVector(v))
	if err != nil || !reflect.DeepEqual(got, v) {
		t.Fatalf("round trip failed: %v %v", got, err)
	}
	if _, err := decodeVector([]byte{0, 1}); err == nil {
		t.Error("expected error for truncated data")
	}
}
