package document

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docsage-ai/docsage/internal/chunker"
	"github.com/docsage-ai/docsage/internal/domain"
	"github.com/docsage-ai/docsage/internal/index"
	"github.com/docsage-ai/docsage/internal/logger"
	"github.com/docsage-ai/docsage/internal/metrics"
	"github.com/docsage-ai/docsage/internal/pii"
)

// Index is the dual-index write contract.
type Index interface {
	Upsert(entries []index.Entry)
	RebuildLexical()
	DeleteByParent(parentID string) int
	Len() int
}

// Embedder vectorizes chunk text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Masker redacts PII from text before it reaches the index.
type Masker interface {
	Mask(text string) pii.Result
}

// Params holds the chunking knobs.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
}

func DefaultParams() Params {
	return Params{ChunkSize: 512, ChunkOverlap: 50}
}

// Service turns raw document text into indexed, embedded chunks.
type Service struct {
	index    Index
	embedder Embedder
	masker   Masker
	params   Params
}

func New(idx Index, embedder Embedder, masker Masker, params Params) *Service {
	if params.ChunkSize <= 0 {
		params = DefaultParams()
	}
	return &Service{index: idx, embedder: embedder, masker: masker, params: params}
}

// Index masks, chunks, embeds and upserts one document, then rebuilds
// the lexical index so the new chunks become lexically searchable. It
// returns the number of chunks indexed.
func (s *Service) Index(ctx context.Context, documentID, text string, meta map[string]string) (int, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if s.masker != nil {
		res := s.masker.Mask(text)
		if res.DidMask {
			log.Info("masked PII before indexing",
				zap.String("document_id", documentID),
				zap.Int("entities", res.Count))
		}
		text = res.Masked
	}

	chunks, err := chunker.Split(text, s.params.ChunkSize, s.params.ChunkOverlap, documentID, meta)
	if err != nil {
		return 0, fmt.Errorf("chunking document %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		res, err := s.embedder.Embed(ctx, c.Content)
		if err != nil {
			return 0, fmt.Errorf("embedding chunk %s: %w", c.ID, err)
		}
		entries[i] = index.Entry{Chunk: c, Vector: res.Embedding}
	}

	s.index.Upsert(entries)
	s.index.RebuildLexical()
	metrics.IndexedChunks.Set(float64(s.index.Len()))

	log.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return len(chunks), nil
}

// Delete removes every chunk belonging to documentID and returns how
// many were removed. Deleting an unknown document returns 0 and
// domain.ErrDocumentNotFound.
func (s *Service) Delete(ctx context.Context, documentID string) (int, error) {
	removed := s.index.DeleteByParent(documentID)
	if removed == 0 {
		return 0, fmt.Errorf("document %s: %w", documentID, domain.ErrDocumentNotFound)
	}
	metrics.IndexedChunks.Set(float64(s.index.Len()))
	logger.FromContext(ctx).Info("document deleted",
		zap.String("document_id", documentID),
		zap.Int("chunks_removed", removed))
	return removed, nil
}
