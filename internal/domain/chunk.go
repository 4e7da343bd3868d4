package domain

// Chunk is the unit of indexing and retrieval: a fragment of a source document.
// Chunks are immutable once created; index structures reference them by ID.
type Chunk struct {
	ID         string
	Text       string
	DocumentID string
	Source     string
	Position   int
	Headings   []string
}
