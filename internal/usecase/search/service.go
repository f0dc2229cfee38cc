package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docsage-ai/docsage/internal/domain"
	"github.com/docsage-ai/docsage/internal/index"
	"github.com/docsage-ai/docsage/internal/logger"
	"github.com/docsage-ai/docsage/internal/metrics"
)

// Service runs hybrid retrieval: vector and lexical sub-queries fused
// into one ranking, optionally reranked, then grouped by parent document.
type Service struct {
	index    Index
	embedder Embedder
	reranker Reranker
	params   Params
}

func New(idx Index, embedder Embedder, reranker Reranker, params Params) *Service {
	if params.K <= 0 {
		params = DefaultParams()
	}
	return &Service{index: idx, embedder: embedder, reranker: reranker, params: params}
}

// candidate carries a chunk through the pipeline together with its
// ranking key. Reranked candidates always order before fused-only ones.
type candidate struct {
	chunk    domain.Chunk
	score    float64
	reranked bool
}

func (c candidate) before(o candidate) bool {
	if c.reranked != o.reranked {
		return c.reranked
	}
	if c.score != o.score {
		return c.score > o.score
	}
	return c.chunk.ID < o.chunk.ID
}

// Search answers a free-text query with at most Params.K chunks drawn
// from at most Params.KParents parent documents, at most two chunks per
// parent. If query embedding fails the vector leg is skipped and the
// result degrades to lexical-only ranking.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Chunk, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	log := logger.FromContext(ctx)
	fetch := 2 * s.params.K

	var vecHits, lexHits []domain.Chunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.embedder.Embed(gctx, query)
		if err != nil {
			log.Warn("query embedding failed, degrading to lexical-only search", zap.Error(err))
			return nil
		}
		vecHits = s.index.QueryVector(res.Embedding, fetch)
		return nil
	})
	g.Go(func() error {
		lexHits = s.index.QueryLexical(index.Tokenize(query), fetch)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(vecHits, lexHits)
	if len(fused) == 0 {
		return []domain.Chunk{}, nil
	}

	if s.reranker != nil {
		s.rerank(ctx, query, fused)
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].before(fused[j]) })

	return s.groupByParent(fused), nil
}

// fuse merges the two result lists by chunk ID. Chunks present in both
// take the mean of the two scores, singletons keep their own.
func fuse(vecHits, lexHits []domain.Chunk) []candidate {
	merged := make(map[string]candidate, len(vecHits)+len(lexHits))
	for _, c := range vecHits {
		merged[c.ID] = candidate{chunk: c, score: c.Score}
	}
	for _, c := range lexHits {
		if prev, ok := merged[c.ID]; ok {
			prev.score = (prev.score + c.Score) / 2
			merged[c.ID] = prev
		} else {
			merged[c.ID] = candidate{chunk: c, score: c.Score}
		}
	}
	out := make([]candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].before(out[j]) })
	return out
}

// rerank rescores the top candidates in place. A reranker failure is
// logged and the fused ordering stands.
func (s *Service) rerank(ctx context.Context, query string, fused []candidate) {
	n := 2 * s.params.KRerank
	if n > len(fused) {
		n = len(fused)
	}
	if n == 0 {
		return
	}
	docs := make([]string, n)
	for i := 0; i < n; i++ {
		docs[i] = fused[i].chunk.Content
	}
	pairs, err := s.reranker.Rerank(ctx, query, docs)
	if err != nil {
		logger.FromContext(ctx).Warn("rerank failed, keeping fused scores", zap.Error(err))
		return
	}
	for _, p := range pairs {
		if p.Index < 0 || p.Index >= n {
			continue
		}
		fused[p.Index].score = p.Score
		fused[p.Index].reranked = true
	}
}

// groupByParent buckets candidates by parent document, ranks buckets by
// their best chunk, and keeps the top two chunks from each of the top
// KParents buckets, truncated to K overall.
func (s *Service) groupByParent(fused []candidate) []domain.Chunk {
	type bucket struct {
		key    string
		chunks []candidate
	}
	byParent := make(map[string]*bucket)
	var order []*bucket
	for _, c := range fused {
		key := c.chunk.ParentKey()
		b, ok := byParent[key]
		if !ok {
			b = &bucket{key: key}
			byParent[key] = b
			order = append(order, b)
		}
		b.chunks = append(b.chunks, c)
	}
	// fused is already sorted, so buckets appear in best-chunk order and
	// each bucket's chunks are internally ordered.
	if len(order) > s.params.KParents {
		order = order[:s.params.KParents]
	}

	out := make([]domain.Chunk, 0, s.params.K)
	for _, b := range order {
		top := b.chunks
		if len(top) > 2 {
			top = top[:2]
		}
		for _, c := range top {
			ch := c.chunk
			ch.Score = c.score
			out = append(out, ch)
		}
	}
	if len(out) > s.params.K {
		out = out[:s.params.K]
	}
	return out
}
