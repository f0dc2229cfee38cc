// Package chunker splits normalized document text into overlapping
// fixed-size chunks tied to a parent document.
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docsage-ai/docsage/internal/domain"
)

// Split cuts text into word windows of size words, stepping by
// size-overlap. Chunk IDs encode the starting word offset so identical
// input always yields an identical chunk sequence.
func Split(text string, size, overlap int, documentID string, meta map[string]string) ([]domain.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrInvalidChunkConfig)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got %d: %w", overlap, domain.ErrInvalidChunkConfig)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]domain.Chunk, 0, (len(words)+step-1)/step)

	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}

		chunkMeta := make(map[string]string, len(meta)+3)
		for k, v := range meta {
			chunkMeta[k] = v
		}
		chunkMeta[domain.MetaDocumentID] = documentID
		chunkMeta[domain.MetaParentID] = documentID
		chunkMeta[domain.MetaChunkIndex] = strconv.Itoa(i)

		chunks = append(chunks, domain.Chunk{
			ID:       fmt.Sprintf("%s_chunk_%d", documentID, i),
			Content:  strings.Join(words[i:end], " "),
			ParentID: documentID,
			Metadata: chunkMeta,
		})
	}

	return chunks, nil
}
