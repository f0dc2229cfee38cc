package search

import (
	"context"

	"github.com/docsage-ai/docsage/internal/domain"
)

type mockIndex struct {
	queryVectorFn  func(vec []float32, k int) []domain.Chunk
	queryLexicalFn func(tokens []string, k int) []domain.Chunk
}

func (m *mockIndex) QueryVector(vec []float32, k int) []domain.Chunk {
	if m.queryVectorFn == nil {
		return nil
	}
	return m.queryVectorFn(vec, k)
}

func (m *mockIndex) QueryLexical(tokens []string, k int) []domain.Chunk {
	if m.queryLexicalFn == nil {
		return nil
	}
	return m.queryLexicalFn(tokens, k)
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn == nil {
		return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
	}
	return m.embedFn(ctx, text)
}

type mockReranker struct {
	rerankFn func(ctx context.Context, query string, documents []string) ([]RerankedPair, error)
}

func (m *mockReranker) Rerank(ctx context.Context, query string, documents []string) ([]RerankedPair, error) {
	return m.rerankFn(ctx, query, documents)
}

func chunkWithScore(id, parent string, score float64) domain.Chunk {
	return domain.Chunk{
		ID:       id,
		Content:  "content of " + id,
		ParentID: parent,
		Score:    score,
	}
}
