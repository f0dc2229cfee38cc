package domain

import "errors"

var (
	// ErrInvalidChunkConfig signals an invalid chunk size / overlap combination.
	ErrInvalidChunkConfig = errors.New("invalid chunk config")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a text generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrRerankProviderError signals a rerank provider failure.
	ErrRerankProviderError = errors.New("rerank provider error")
)
