package domain

// Metadata keys set by the chunker and consumed by search and citations.
const (
	MetaDocumentID = "document_id"
	MetaParentID   = "parent_id"
	MetaChunkIndex = "chunk_index"
	MetaFilename   = "filename"
	MetaPage       = "page"
)

// Chunk is a bounded span of a document's text, the unit of indexing
// and retrieval. Score is search-scoped: it is rewritten by fusion and
// reranking and is never persisted as ground truth.
type Chunk struct {
	ID       string
	Content  string
	ParentID string
	Metadata map[string]string
	Score    float64
}

// ParentKey returns the grouping key for parent-document bucketing:
// ParentID when set, otherwise the document_id metadata field.
func (c *Chunk) ParentKey() string {
	if c.ParentID != "" {
		return c.ParentID
	}
	if id, ok := c.Metadata[MetaDocumentID]; ok {
		return id
	}
	return "unknown"
}

// SourceLabel returns a human-readable origin for citations.
func (c *Chunk) SourceLabel() string {
	if name, ok := c.Metadata[MetaFilename]; ok && name != "" {
		return name
	}
	return c.ParentKey()
}

// Locator returns the position of the chunk inside its source (page
// number when known).
func (c *Chunk) Locator() string {
	if page, ok := c.Metadata[MetaPage]; ok && page != "" {
		return page
	}
	return "N/A"
}
