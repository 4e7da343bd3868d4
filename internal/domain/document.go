package domain

// DocumentStatus tracks a document through the ingestion lifecycle.
type DocumentStatus string

const (
	// DocumentPending means the document is registered but not yet processed.
	DocumentPending DocumentStatus = "pending"
	// DocumentProcessing means chunking and indexing are in progress.
	DocumentProcessing DocumentStatus = "processing"
	// DocumentCompleted means all chunks are committed to both indices.
	DocumentCompleted DocumentStatus = "completed"
	// DocumentFailed means ingestion failed; ErrorMessage holds the cause.
	DocumentFailed DocumentStatus = "failed"
)

// Document is an ingested source file. Chunk children are created during
// processing; the document is never partially indexed.
type Document struct {
	ID           string
	Filename     string
	FileType     string
	ChunkCount   int
	Status       DocumentStatus
	ErrorMessage string
}
