package search

import (
	"context"

	"github.com/docsage-ai/docsage/internal/domain"
)

// Index is the dual-index read contract.
type Index interface {
	QueryVector(vec []float32, k int) []domain.Chunk
	QueryLexical(tokens []string, k int) []domain.Chunk
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// RerankedPair is the relevance model's score for the document at
// Index in the submitted candidate list.
type RerankedPair struct {
	Index int
	Score float64
}

// Reranker scores (query, document) pairs with a pairwise relevance
// model. A nil Reranker disables the rerank stage.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankedPair, error)
}

// Params holds the retrieval knobs.
type Params struct {
	// K is the maximum number of chunks returned.
	K int
	// KParents caps how many distinct parent documents contribute chunks.
	KParents int
	// KRerank bounds the rerank stage: up to 2*KRerank candidates are rescored.
	KRerank int
}

// DefaultParams mirrors the documented retrieval defaults.
func DefaultParams() Params {
	return Params{K: 5, KParents: 3, KRerank: 3}
}
