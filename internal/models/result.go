package models

// ScoredChunk is a chunk paired with its similarity to the query.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is the ranked output of a scoped retrieval. Chunks is ordered by
// descending score and may be empty.
type RetrievalResult struct {
	DocumentType DocumentType  `json:"document_type"`
	Disease      string        `json:"disease,omitempty"`
	Chunks       []ScoredChunk `json:"chunks"`
}

// Empty reports whether the retrieval scope produced no candidates.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Chunks) == 0
}

// IndexStats summarizes a tenant index.
type IndexStats struct {
	Tenant      string           `json:"tenant"`
	TotalChunks int              `json:"total_chunks"`
	Categories  map[Category]int `json:"categories"`
	Diseases    []string         `json:"diseases"`
	Dimensions  int              `json:"dimensions"`
}
