// Package index holds the dual in-memory index: a vector similarity
// index and a lexical (BM25) index, both keyed by chunk ID.
//
// Readers are lock-free: every query runs against an immutable snapshot
// published through an atomic pointer. Writes and lexical rebuilds take
// a single exclusive section and swap in a new snapshot, so concurrent
// readers observe either the pre- or post-update view, never a partial
// one.
package index

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"go.uber.org/zap"

	"github.com/docsage-ai/docsage/internal/domain"
)

// BM25 parameters (rank_bm25 Okapi defaults).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Entry is a chunk together with its embedding vector, ready to index.
type Entry struct {
	Chunk  domain.Chunk
	Vector []float32
}

// record is the stored form of one chunk.
type record struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
	tokens []string
}

// lexicalIndex holds corpus-wide BM25 statistics, recomputed on rebuild.
// Chunks upserted after the last rebuild are not visible to lexical
// queries until the next rebuild; the vector side sees them immediately.
type lexicalIndex struct {
	postings map[string]map[string]int // term -> chunk id -> term frequency
	lengths  map[string]int            // chunk id -> token count
	avgLen   float64
	count    int
}

// snapshot is one immutable view of both indexes.
type snapshot struct {
	records map[string]record
	lexical *lexicalIndex
}

// Store is the dual index. The zero value is not usable; call New.
type Store struct {
	mu     sync.Mutex // serializes writes and rebuilds
	snap   atomic.Pointer[snapshot]
	logger *zap.Logger
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	s := &Store{logger: logger}
	s.snap.Store(&snapshot{
		records: map[string]record{},
		lexical: &lexicalIndex{postings: map[string]map[string]int{}, lengths: map[string]int{}},
	})
	return s
}

// Tokenize lowercases text and splits it into alphanumeric terms. The
// same tokenizer is applied at index time and query time.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Upsert writes chunks into the vector index and their tokenized text
// into the record set. Atomic per batch: readers see all entries or
// none. Lexical statistics stay stale until RebuildLexical runs.
func (s *Store) Upsert(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	next := cloneRecords(cur.records, len(entries))
	for _, e := range entries {
		next[e.Chunk.ID] = record{
			chunk:  e.Chunk,
			vector: e.Vector,
			norm:   vectorNorm(e.Vector),
			tokens: Tokenize(e.Chunk.Content),
		}
	}

	s.snap.Store(&snapshot{records: next, lexical: cur.lexical})
}

// RebuildLexical recomputes document frequencies and average chunk
// length over the entire current chunk set. Concurrent calls queue on
// the writer mutex; each completed rebuild reflects the whole set at
// the time it runs, which coalesces queued intents into the final view.
func (s *Store) RebuildLexical() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	s.snap.Store(&snapshot{records: cur.records, lexical: buildLexical(cur.records)})

	s.logger.Debug("lexical index rebuilt", zap.Int("chunks", len(cur.records)))
}

// QueryVector returns up to k chunks nearest to the query embedding.
// Similarity is cosine (1 - cosine distance); ties break by chunk ID
// ascending. An empty index yields an empty result, never an error.
func (s *Store) QueryVector(vec []float32, k int) []domain.Chunk {
	if k <= 0 || len(vec) == 0 {
		return nil
	}

	snap := s.snap.Load()
	qNorm := vectorNorm(vec)
	if qNorm == 0 {
		return nil
	}

	hits := make([]domain.Chunk, 0, len(snap.records))
	for _, rec := range snap.records {
		if rec.norm == 0 || len(rec.vector) != len(vec) {
			continue
		}
		c := rec.chunk
		c.Score = dot(vec, rec.vector) / (qNorm * rec.norm)
		hits = append(hits, c)
	}

	return topK(hits, k)
}

// QueryLexical ranks chunks by BM25 over the last rebuilt statistics.
// Ties break by chunk ID ascending.
func (s *Store) QueryLexical(tokens []string, k int) []domain.Chunk {
	if k <= 0 || len(tokens) == 0 {
		return nil
	}

	snap := s.snap.Load()
	lex := snap.lexical
	if lex.count == 0 {
		return nil
	}

	scores := make(map[string]float64)
	n := float64(lex.count)
	for _, term := range tokens {
		posting, ok := lex.postings[term]
		if !ok {
			continue
		}
		df := float64(len(posting))
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		for id, tf := range posting {
			dl := float64(lex.lengths[id])
			tfF := float64(tf)
			scores[id] += idf * (tfF * (bm25K1 + 1)) / (tfF + bm25K1*(1-bm25B+bm25B*dl/lex.avgLen))
		}
	}

	hits := make([]domain.Chunk, 0, len(scores))
	for id, score := range scores {
		rec, ok := snap.records[id]
		if !ok {
			// Chunk deleted after the last rebuild.
			continue
		}
		c := rec.chunk
		c.Score = score
		hits = append(hits, c)
	}

	return topK(hits, k)
}

// DeleteByParent removes every chunk belonging to the given parent
// document and rebuilds the lexical statistics in the same exclusive
// section. Returns the number of chunks removed; 0 when nothing
// matched.
func (s *Store) DeleteByParent(documentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	removed := 0
	next := make(map[string]record, len(cur.records))
	for id, rec := range cur.records {
		c := rec.chunk
		if c.ParentKey() == documentID {
			removed++
			continue
		}
		next[id] = rec
	}

	if removed == 0 {
		return 0
	}

	s.snap.Store(&snapshot{records: next, lexical: buildLexical(next)})
	return removed
}

// Get returns the stored chunk for an ID.
func (s *Store) Get(id string) (domain.Chunk, bool) {
	rec, ok := s.snap.Load().records[id]
	if !ok {
		return domain.Chunk{}, false
	}
	return rec.chunk, true
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	return len(s.snap.Load().records)
}

func buildLexical(records map[string]record) *lexicalIndex {
	lex := &lexicalIndex{
		postings: make(map[string]map[string]int),
		lengths:  make(map[string]int, len(records)),
	}

	totalLen := 0
	for id, rec := range records {
		lex.lengths[id] = len(rec.tokens)
		totalLen += len(rec.tokens)
		for _, term := range rec.tokens {
			posting, ok := lex.postings[term]
			if !ok {
				posting = make(map[string]int)
				lex.postings[term] = posting
			}
			posting[id]++
		}
	}

	lex.count = len(records)
	if lex.count > 0 {
		lex.avgLen = float64(totalLen) / float64(lex.count)
	}
	return lex
}

func cloneRecords(src map[string]record, extra int) map[string]record {
	dst := make(map[string]record, len(src)+extra)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// topK sorts hits by score descending with chunk ID ascending as the
// tiebreaker (total order, for determinism) and truncates to k.
func topK(hits []domain.Chunk, k int) []domain.Chunk {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
