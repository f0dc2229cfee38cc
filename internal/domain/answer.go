package domain

// Citation points a generated answer back to a retrieved chunk.
// Derived 1:1 from the chunks used to build the generation context.
type Citation struct {
	ChunkID     string  `json:"chunk_id"`
	SourceLabel string  `json:"source"`
	Locator     string  `json:"page"`
	Relevance   float64 `json:"relevance_score"`
}

// Answer is the final response for one query, assembled after the last
// audit pass.
type Answer struct {
	Text           string     `json:"answer"`
	Citations      []Citation `json:"citations"`
	Confidence     float64    `json:"confidence"`
	ContextExcerpt string     `json:"context_excerpt"`
	Iterations     int        `json:"iterations"`
	PIIMasked      bool       `json:"pii_masked"`
	PIICount       int        `json:"pii_count"`
}

// CitationFromChunk builds a citation for a chunk retained in the
// generation context.
func CitationFromChunk(c *Chunk) Citation {
	return Citation{
		ChunkID:     c.ID,
		SourceLabel: c.SourceLabel(),
		Locator:     c.Locator(),
		Relevance:   c.Score,
	}
}
