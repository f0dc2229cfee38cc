package chunker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/docsage-ai/docsage/internal/domain"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplit_Offsets(t *testing.T) {
	// 1000 words, size 512, overlap 50 -> windows start at 0, 462, 924.
	chunks, err := Split(words(1000), 512, 50, "doc1", nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	wantIDs := []string{"doc1_chunk_0", "doc1_chunk_462", "doc1_chunk_924"}
	if len(chunks) != len(wantIDs) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(wantIDs))
	}
	for i, want := range wantIDs {
		if chunks[i].ID != want {
			t.Errorf("chunk[%d].ID = %q, want %q", i, chunks[i].ID, want)
		}
	}

	// Last window is truncated to the remaining words.
	last := chunks[len(chunks)-1]
	if got := len(strings.Fields(last.Content)); got != 76 {
		t.Errorf("last chunk has %d words, want 76", got)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := words(300)
	meta := map[string]string{domain.MetaFilename: "report.pdf"}

	a, err := Split(text, 64, 16, "doc", meta)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	b, err := Split(text, 64, 16, "doc", meta)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("repeated Split produced different chunk sequences")
	}
}

func TestSplit_Metadata(t *testing.T) {
	chunks, err := Split(words(10), 4, 1, "d7", map[string]string{domain.MetaFilename: "f.txt"})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}

	c := chunks[1]
	if c.ParentID != "d7" {
		t.Errorf("ParentID = %q, want d7", c.ParentID)
	}
	if c.Metadata[domain.MetaDocumentID] != "d7" {
		t.Errorf("document_id = %q, want d7", c.Metadata[domain.MetaDocumentID])
	}
	if c.Metadata[domain.MetaChunkIndex] != "3" {
		t.Errorf("chunk_index = %q, want 3", c.Metadata[domain.MetaChunkIndex])
	}
	if c.Metadata[domain.MetaFilename] != "f.txt" {
		t.Errorf("filename metadata not carried over: %q", c.Metadata[domain.MetaFilename])
	}
}

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 10, 10},
		{"overlap above size", 10, 20},
		{"negative overlap", 10, -1},
		{"zero size", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("a b c", tt.size, tt.overlap, "d", nil)
			if !errors.Is(err, domain.ErrInvalidChunkConfig) {
				t.Errorf("err = %v, want ErrInvalidChunkConfig", err)
			}
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		chunks, err := Split(text, 10, 2, "d", nil)
		if err != nil {
			t.Fatalf("Split(%q): %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q) produced %d chunks, want 0", text, len(chunks))
		}
	}
}
