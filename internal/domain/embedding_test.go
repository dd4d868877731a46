package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchResult BatchEmbeddingResult
	batchErr    error
	batchTexts  []string
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchTexts = texts
	return s.batchResult, s.batchErr
}

func TestBatchFallback_Success(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 5,
		TotalTokens:  5,
	}}
	res, err := BatchFallback(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if res.TotalTokens != 15 {
		t.Errorf("expected TotalTokens=15, got %d", res.TotalTokens)
	}
	if res.PromptTokens != 15 {
		t.Errorf("expected PromptTokens=15, got %d", res.PromptTokens)
	}
	if len(inner.got) != 3 || inner.got[0] != "a" || inner.got[2] != "c" {
		t.Errorf("expected texts in order, got %v", inner.got)
	}
}

func TestBatchFallback_Error(t *testing.T) {
	innerErr := errors.New("fail")
	inner := &stubEmbedder{err: innerErr}
	_, err := BatchFallback(context.Background(), inner, []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestBatchFallback_Empty(t *testing.T) {
	inner := &stubEmbedder{}
	res, err := BatchFallback(context.Background(), inner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 0 {
		t.Errorf("expected 0 embeddings, got %d", len(res.Embeddings))
	}
}

func TestBatchFallback_StopsOnCancel(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BatchFallback(ctx, inner, []string{"a", "b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(inner.got) != 0 {
		t.Errorf("expected no Embed calls after cancel, got %d", len(inner.got))
	}
}

func TestBatchEmbeddingResult_AddMerge(t *testing.T) {
	var r BatchEmbeddingResult
	r.Add(EmbeddingResult{Embedding: []float32{1}, PromptTokens: 2, TotalTokens: 3})
	r.Merge(BatchEmbeddingResult{Embeddings: [][]float32{{2}, {3}}, PromptTokens: 4, TotalTokens: 5})

	if len(r.Embeddings) != 3 || r.Embeddings[2][0] != 3 {
		t.Errorf("unexpected embeddings: %v", r.Embeddings)
	}
	if r.PromptTokens != 6 || r.TotalTokens != 8 {
		t.Errorf("unexpected tokens: %+v", r)
	}
}

func TestAsBatch_UsesNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{
		batchResult: BatchEmbeddingResult{Embeddings: [][]float32{{0.1}, {0.2}}},
	}
	res, err := AsBatch(inner).BatchEmbed(context.Background(), []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if len(inner.batchTexts) != 2 {
		t.Errorf("expected native batch call, got %v", inner.batchTexts)
	}
	if len(inner.got) != 0 {
		t.Errorf("expected no single Embed calls, got %d", len(inner.got))
	}
}

func TestAsBatch_FallsBackToSingle(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}, TotalTokens: 2}}
	res, err := AsBatch(inner).BatchEmbed(context.Background(), []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTokens != 4 {
		t.Errorf("expected TotalTokens=4, got %d", res.TotalTokens)
	}
	if len(inner.got) != 2 {
		t.Errorf("expected 2 single Embed calls, got %d", len(inner.got))
	}
}

func TestEmbeddingUsage_Record(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).Record(12, 3)

	if !u.Used || u.TotalTokens != 12 || u.Sentences != 3 {
		t.Errorf("unexpected usage: %+v", u)
	}
}

func TestEmbeddingUsage_NilSafe(t *testing.T) {
	u := UsageFromContext(context.Background())
	if u != nil {
		t.Fatal("expected nil usage without collector")
	}
	u.Record(1, 1) // must not panic
}
