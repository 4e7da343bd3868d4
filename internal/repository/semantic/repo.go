// Package semantic wraps the embedding provider and the vector store behind
// the retrieval pipeline's nearest-neighbor contract. Backend failures are
// absorbed at this boundary: search degrades to an empty result set so hybrid
// fusion can fall back to lexical-only ranking.
package semantic

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/db"
	"github.com/medevs/local-smart-portfolio/internal/domain"
)

// store is the consumer interface for vector operations (ISP).
type store interface {
	EnsureIndex(ctx context.Context, dimensions int) error
	Upsert(ctx context.Context, records []db.ChunkRecord) error
	SearchKNN(ctx context.Context, vector []float32, k int) ([]db.Hit, error)
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	Snapshot(ctx context.Context) ([]db.ChunkRecord, error)
}

// Repo provides semantic (embedding nearest-neighbor) retrieval and acts as
// the corpus source of truth for lexical rebuilds.
type Repo struct {
	store  store
	embed  domain.Embedder
	logger *zap.Logger
}

// New creates a semantic repository.
func New(s store, embed domain.Embedder, logger *zap.Logger) *Repo {
	return &Repo{store: s, embed: embed, logger: logger}
}

// EnsureIndex creates the backend vector index if missing.
func (r *Repo) EnsureIndex(ctx context.Context, dimensions int) error {
	if err := r.store.EnsureIndex(ctx, dimensions); err != nil {
		return fmt.Errorf("ensure vector index: %w", err)
	}
	return nil
}

// Search embeds the query and returns the k nearest chunks as candidates with
// SemanticScore set. Embedding or backend failures are logged and surface as
// an empty result, never as an error.
func (r *Repo) Search(ctx context.Context, query string, k int) []domain.Candidate {
	if query == "" || k <= 0 {
		return nil
	}

	embRes, err := r.embed.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("Semantic search degraded: query embedding failed", zap.Error(err))
		return nil
	}

	hits, err := r.store.SearchKNN(ctx, embRes.Embedding, k)
	if err != nil {
		r.logger.Warn("Semantic search degraded: vector search failed", zap.Error(err))
		return nil
	}

	candidates := make([]domain.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, domain.Candidate{
			Chunk:         chunkFromRecord(hit.Record),
			SemanticScore: similarityFromDistance(hit.Distance),
		})
	}
	return candidates
}

// Upsert stores chunks with their embeddings.
func (r *Repo) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d: %w",
			len(chunks), len(vectors), domain.ErrVectorDimMismatch)
	}

	records := make([]db.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = recordFromChunk(chunk)
		records[i].Vector = vectors[i]
	}

	if err := r.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

// DeleteByDocument purges all chunks of a document from the vector store.
func (r *Repo) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	count, err := r.store.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return count, nil
}

// Corpus returns the full current chunk corpus, used to rebuild the lexical
// index from the same snapshot the vector store serves.
func (r *Repo) Corpus(ctx context.Context) ([]domain.Chunk, error) {
	records, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("corpus snapshot: %w", err)
	}

	chunks := make([]domain.Chunk, len(records))
	for i, rec := range records {
		chunks[i] = chunkFromRecord(rec)
	}
	return chunks, nil
}

// Documents derives the unique document list from the stored corpus.
func (r *Repo) Documents(ctx context.Context) ([]domain.Document, error) {
	records, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("corpus snapshot: %w", err)
	}

	byID := make(map[string]*domain.Document)
	order := make([]string, 0)
	for _, rec := range records {
		doc, ok := byID[rec.DocumentID]
		if !ok {
			doc = &domain.Document{
				ID:       rec.DocumentID,
				Filename: rec.Source,
				Status:   domain.DocumentCompleted,
			}
			byID[rec.DocumentID] = doc
			order = append(order, rec.DocumentID)
		}
		doc.ChunkCount++
	}

	docs := make([]domain.Document, 0, len(order))
	for _, id := range order {
		docs = append(docs, *byID[id])
	}
	return docs, nil
}

// similarityFromDistance converts a raw vector distance into a similarity in
// [0,1] comparable with normalized lexical scores.
func similarityFromDistance(d float64) float64 {
	sim := 1 - d/2
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func chunkFromRecord(rec db.ChunkRecord) domain.Chunk {
	return domain.Chunk{
		ID:         rec.ID,
		Text:       rec.Text,
		DocumentID: rec.DocumentID,
		Source:     rec.Source,
		Position:   rec.Position,
		Headings:   rec.Headings,
	}
}

func recordFromChunk(chunk domain.Chunk) db.ChunkRecord {
	return db.ChunkRecord{
		ID:         chunk.ID,
		Text:       chunk.Text,
		DocumentID: chunk.DocumentID,
		Source:     chunk.Source,
		Position:   chunk.Position,
		Headings:   chunk.Headings,
	}
}
