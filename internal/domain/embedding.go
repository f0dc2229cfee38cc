package domain

import "context"

// EmbeddingResult is a single text's vector plus the provider's token accounting.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker reports whether an upstream provider is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
