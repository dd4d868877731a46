package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for a single vectorization request.
// The handler puts a mutable pointer into the context before calling the vectorizer;
// the vectorizer writes after embedding; the handler reads it for response headers.
type EmbeddingUsage struct {
	TotalTokens int
	Sentences   int
	Used        bool // true if embedding was called, even when every sentence hit the cache
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record stores consumed tokens and the number of embedded sentences.
func (u *EmbeddingUsage) Record(tokens, sentences int) {
	if u != nil {
		u.TotalTokens += tokens
		u.Sentences += sentences
		u.Used = true
	}
}
