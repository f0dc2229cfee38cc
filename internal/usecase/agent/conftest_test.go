package agent

import (
	"context"
	"fmt"

	"github.com/docsage-ai/docsage/internal/domain"
	"github.com/docsage-ai/docsage/internal/pii"
)

// mockGenerator routes completions to a per-stage function keyed on
// the system prompt, so tests script each stage independently.
type mockGenerator struct {
	planFn     func() (string, error)
	generateFn func() (string, error)
	auditFn    func() (string, error)

	planCalls     int
	generateCalls int
	auditCalls    int
}

func (m *mockGenerator) Complete(_ context.Context, systemPrompt, _ string, _ float32) (string, error) {
	switch systemPrompt {
	case planSystemPrompt:
		m.planCalls++
		if m.planFn == nil {
			return "SEARCH: YES", nil
		}
		return m.planFn()
	case generateSystemPrompt:
		m.generateCalls++
		if m.generateFn == nil {
			return "the answer [1]", nil
		}
		return m.generateFn()
	case auditSystemPrompt:
		m.auditCalls++
		if m.auditFn == nil {
			return "0.9", nil
		}
		return m.auditFn()
	}
	return "", fmt.Errorf("unexpected system prompt: %s", systemPrompt)
}

type mockSearcher struct {
	searchFn func(ctx context.Context, query string) ([]domain.Chunk, error)
	calls    int
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]domain.Chunk, error) {
	m.calls++
	if m.searchFn == nil {
		return []domain.Chunk{
			{ID: "c1", Content: "first passage", ParentID: "doc1", Score: 0.9,
				Metadata: map[string]string{"filename": "a.txt", "page": "2"}},
			{ID: "c2", Content: "second passage", ParentID: "doc2", Score: 0.7},
		}, nil
	}
	return m.searchFn(ctx, query)
}

func newTestService(gen *mockGenerator, searcher *mockSearcher, params Params) *Service {
	return New(gen, searcher, pii.NewMasker(true), params)
}
