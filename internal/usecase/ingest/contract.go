package ingest

import (
	"context"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

// Corpus is the vector-store-backed chunk corpus: the single source of truth
// the lexical index is rebuilt from.
type Corpus interface {
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	Corpus(ctx context.Context) ([]domain.Chunk, error)
	Documents(ctx context.Context) ([]domain.Document, error)
}

// LexicalIndex is rebuilt wholesale after every corpus change.
type LexicalIndex interface {
	Build(chunks []domain.Chunk)
	Size() int
}
