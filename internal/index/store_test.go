package index

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/docsage-ai/docsage/internal/domain"
)

func newTestStore() *Store {
	return New(zap.NewNop())
}

func entry(id, parent, content string, vec []float32) Entry {
	return Entry{
		Chunk: domain.Chunk{
			ID:       id,
			Content:  content,
			ParentID: parent,
			Metadata: map[string]string{domain.MetaDocumentID: parent},
		},
		Vector: vec,
	}
}

func TestQueryVector_Ranking(t *testing.T) {
	s := newTestStore()
	s.Upsert([]Entry{
		entry("a", "d1", "alpha", []float32{1, 0}),
		entry("b", "d1", "beta", []float32{0.9, 0.1}),
		entry("c", "d2", "gamma", []float32{0, 1}),
	})

	got := s.QueryVector([]float32{1, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("got %d hits, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("order = [%s %s], want [a b]", got[0].ID, got[1].ID)
	}
	if got[0].Score < got[1].Score {
		t.Error("scores are not non-increasing")
	}
}

func TestQueryVector_TiesBreakByID(t *testing.T) {
	s := newTestStore()
	// Identical vectors: identical similarity, order must be by ID.
	s.Upsert([]Entry{
		entry("z", "d", "z", []float32{1, 1}),
		entry("a", "d", "a", []float32{1, 1}),
		entry("m", "d", "m", []float32{1, 1}),
	})

	got := s.QueryVector([]float32{1, 1}, 3)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if !reflect.DeepEqual(ids, []string{"a", "m", "z"}) {
		t.Errorf("tie order = %v, want [a m z]", ids)
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	s := newTestStore()
	if got := s.QueryVector([]float32{1, 0}, 5); len(got) != 0 {
		t.Errorf("vector query on empty index returned %d hits", len(got))
	}
	if got := s.QueryLexical([]string{"anything"}, 5); len(got) != 0 {
		t.Errorf("lexical query on empty index returned %d hits", len(got))
	}
}

func TestQueryLexical_RequiresRebuild(t *testing.T) {
	s := newTestStore()
	s.Upsert([]Entry{entry("a", "d1", "solar panel efficiency", []float32{1})})

	// Stats not rebuilt yet: the new chunk is invisible to lexical search.
	if got := s.QueryLexical(Tokenize("solar"), 5); len(got) != 0 {
		t.Fatalf("lexical query before rebuild returned %d hits", len(got))
	}

	s.RebuildLexical()

	got := s.QueryLexical(Tokenize("solar"), 5)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("lexical query after rebuild = %+v, want chunk a", got)
	}
	if got[0].Score <= 0 {
		t.Errorf("BM25 score = %f, want > 0", got[0].Score)
	}
}

func TestQueryLexical_RanksByRelevance(t *testing.T) {
	s := newTestStore()
	s.Upsert([]Entry{
		entry("a", "d1", "wind turbine blade maintenance wind wind", []float32{1}),
		entry("b", "d2", "wind conditions report", []float32{1}),
		entry("c", "d3", "annual financial summary", []float32{1}),
	})
	s.RebuildLexical()

	got := s.QueryLexical(Tokenize("wind"), 10)
	if len(got) != 2 {
		t.Fatalf("got %d hits, want 2", len(got))
	}
	if got[0].ID != "a" {
		t.Errorf("top hit = %s, want a (higher term frequency)", got[0].ID)
	}
}

func TestDeleteByParent(t *testing.T) {
	s := newTestStore()
	s.Upsert([]Entry{
		entry("a1", "d1", "first body", []float32{1, 0}),
		entry("a2", "d1", "second body", []float32{0, 1}),
		entry("b1", "d2", "other document", []float32{1, 1}),
	})
	s.RebuildLexical()

	removed := s.DeleteByParent("d1")
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}

	// Deletion rebuilds lexical stats: deleted chunks are gone from both sides.
	if got := s.QueryLexical(Tokenize("first"), 5); len(got) != 0 {
		t.Errorf("deleted chunk still lexically searchable: %+v", got)
	}
	if got := s.QueryVector([]float32{1, 0}, 5); len(got) != 1 || got[0].ID != "b1" {
		t.Errorf("vector query after delete = %+v, want only b1", got)
	}
}

func TestDeleteByParent_Unknown(t *testing.T) {
	s := newTestStore()
	s.Upsert([]Entry{entry("a", "d1", "text", []float32{1})})
	s.RebuildLexical()

	if removed := s.DeleteByParent("nope"); removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len changed on no-op delete: %d", s.Len())
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := newTestStore()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d_%d", w, i)
				s.Upsert([]Entry{entry(id, fmt.Sprintf("doc%d", w), "shared token text", []float32{1, float32(i)})})
				s.RebuildLexical()
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.QueryVector([]float32{1, 1}, 10)
				s.QueryLexical([]string{"shared"}, 10)
			}
		}()
	}

	wg.Wait()

	if s.Len() != 200 {
		t.Errorf("Len = %d, want 200", s.Len())
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Solar-Panel, efficiency: 42%!")
	want := []string{"solar", "panel", "efficiency", "42"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}
