package db

import (
	"context"
	"time"
)

// ChunkRecord is a stored chunk plus its embedding, in backend-flat form.
// The repository layer converts records to domain types.
type ChunkRecord struct {
	ID         string
	Text       string
	DocumentID string
	Source     string
	Position   int
	Headings   []string
	Vector     []float32
}

// Hit is a raw nearest-neighbor hit. Distance is the backend's raw vector
// distance; the repository layer converts it to a similarity score.
type Hit struct {
	Record   ChunkRecord
	Distance float64
}

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	VectorStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VectorStore provides chunk storage and vector similarity search.
type VectorStore interface {
	// EnsureIndex creates the vector index if it does not exist yet.
	EnsureIndex(ctx context.Context, dimensions int) error
	// Upsert stores chunks with their embeddings.
	Upsert(ctx context.Context, records []ChunkRecord) error
	// SearchKNN returns the k nearest chunks by vector distance, closest first.
	SearchKNN(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// DeleteByDocument removes all chunks of a document, returning the count removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	// Snapshot returns the full current chunk corpus (without vectors).
	Snapshot(ctx context.Context) ([]ChunkRecord, error)
}

// KVStore provides simple key-value operations (used by the embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
