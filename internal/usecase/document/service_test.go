package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docsage-ai/docsage/internal/domain"
	"github.com/docsage-ai/docsage/internal/index"
	"github.com/docsage-ai/docsage/internal/pii"
	"go.uber.org/zap"
)

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn == nil {
		return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
	}
	return m.embedFn(ctx, text)
}

func newTestService(t *testing.T, emb *mockEmbedder, params Params) (*Service, *index.Store) {
	t.Helper()
	store := index.New(zap.NewNop())
	return New(store, emb, pii.NewMasker(true), params), store
}

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = "word"
	}
	return strings.Join(out, " ")
}

func TestIndexChunksEmbedsAndUpserts(t *testing.T) {
	emb := &mockEmbedder{}
	svc, store := newTestService(t, emb, Params{ChunkSize: 100, ChunkOverlap: 10})

	n, err := svc.Index(context.Background(), "doc1", words(250), map[string]string{"filename": "a.txt"})
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("indexed %d chunks, want 3", n)
	}
	if emb.calls != 3 {
		t.Errorf("embedder called %d times, want 3", emb.calls)
	}
	if store.Len() != 3 {
		t.Errorf("store holds %d chunks, want 3", store.Len())
	}

	// lexical rebuild must have run as part of indexing
	hits := store.QueryLexical([]string{"word"}, 5)
	if len(hits) == 0 {
		t.Error("lexical query found nothing after indexing")
	}
}

func TestIndexMasksPIIBeforeChunking(t *testing.T) {
	emb := &mockEmbedder{}
	svc, store := newTestService(t, emb, Params{ChunkSize: 100, ChunkOverlap: 10})

	_, err := svc.Index(context.Background(), "doc1", "contact alice@example.com for details", nil)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	c, ok := store.Get("doc1_chunk_0")
	if !ok {
		t.Fatal("chunk not found after indexing")
	}
	if strings.Contains(c.Content, "alice@example.com") {
		t.Errorf("indexed content still contains raw email: %q", c.Content)
	}
	if !strings.Contains(c.Content, "[EMAIL]") {
		t.Errorf("indexed content lacks mask marker: %q", c.Content)
	}
}

func TestIndexEmptyTextIsNoop(t *testing.T) {
	emb := &mockEmbedder{}
	svc, store := newTestService(t, emb, DefaultParams())

	n, err := svc.Index(context.Background(), "doc1", "   ", nil)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if n != 0 || store.Len() != 0 {
		t.Fatalf("n=%d len=%d, want both 0", n, store.Len())
	}
}

func TestIndexPropagatesEmbedderError(t *testing.T) {
	wantErr := errors.New("provider down")
	emb := &mockEmbedder{
		embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{}, wantErr
		},
	}
	svc, store := newTestService(t, emb, DefaultParams())

	_, err := svc.Index(context.Background(), "doc1", words(100), nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Index() error = %v, want wrapped %v", err, wantErr)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d chunks after failed indexing, want 0", store.Len())
	}
}

func TestIndexInvalidChunkConfig(t *testing.T) {
	svc, _ := newTestService(t, &mockEmbedder{}, Params{ChunkSize: 100, ChunkOverlap: 100})

	_, err := svc.Index(context.Background(), "doc1", words(100), nil)
	if !errors.Is(err, domain.ErrInvalidChunkConfig) {
		t.Fatalf("Index() error = %v, want ErrInvalidChunkConfig", err)
	}
}

func TestDeleteRemovesAllChunks(t *testing.T) {
	svc, store := newTestService(t, &mockEmbedder{}, Params{ChunkSize: 100, ChunkOverlap: 10})
	ctx := context.Background()
	if _, err := svc.Index(ctx, "doc1", words(250), nil); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if _, err := svc.Index(ctx, "doc2", words(50), nil); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	removed, err := svc.Delete(ctx, "doc1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d chunks, want 3", removed)
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d chunks, want 1", store.Len())
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc, store := newTestService(t, &mockEmbedder{}, DefaultParams())
	ctx := context.Background()
	if _, err := svc.Index(ctx, "doc1", words(50), nil); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	removed, err := svc.Delete(ctx, "ghost")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Delete() error = %v, want ErrDocumentNotFound", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if store.Len() != 1 {
		t.Errorf("index size changed on unknown delete: %d", store.Len())
	}
}
