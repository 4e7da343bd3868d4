package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/metrics"
)

// Service ingests documents: chunk, embed, store, and refresh the lexical
// index so both retrieval legs serve the same corpus.
type Service struct {
	corpus  Corpus
	embed   domain.Embedder
	lexical LexicalIndex
	chunker *Chunker
	logger  *zap.Logger
}

// New creates an ingestion service.
func New(corpus Corpus, embed domain.Embedder, lexical LexicalIndex, chunker *Chunker, logger *zap.Logger) *Service {
	return &Service{
		corpus:  corpus,
		embed:   embed,
		lexical: lexical,
		chunker: chunker,
		logger:  logger,
	}
}

// IngestText chunks and stores a text document, then refreshes the lexical
// index. On embedding or storage failure the returned document carries the
// failed status and the error message alongside the error itself.
func (s *Service) IngestText(ctx context.Context, filename, text string) (domain.Document, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, fmt.Errorf("document %q has no extractable text", filename)
	}

	doc := domain.Document{
		ID:       uuid.NewString(),
		Filename: filename,
		FileType: strings.ToLower(filepath.Ext(filename)),
		Status:   domain.DocumentProcessing,
	}

	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return domain.Document{}, fmt.Errorf("document %q produced no chunks", filename)
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, i),
			Text:       piece,
			DocumentID: doc.ID,
			Source:     filename,
			Position:   i,
			Headings:   extractHeadings(piece),
		}
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		doc.Status = domain.DocumentFailed
		doc.ErrorMessage = err.Error()
		return doc, fmt.Errorf("embed document %q: %w", filename, err)
	}

	if err := s.corpus.Upsert(ctx, chunks, vectors); err != nil {
		doc.Status = domain.DocumentFailed
		doc.ErrorMessage = err.Error()
		return doc, fmt.Errorf("store document %q: %w", filename, err)
	}

	doc.Status = domain.DocumentCompleted
	doc.ChunkCount = len(chunks)

	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)))

	if err := s.RefreshLexical(ctx); err != nil {
		// The document is stored; lexical search lags until the next rebuild.
		s.logger.Warn("lexical refresh after ingest failed", zap.Error(err))
	}

	return doc, nil
}

// Delete removes a document's chunks from the corpus and refreshes the
// lexical index. Returns the number of chunks removed.
func (s *Service) Delete(ctx context.Context, documentID string) (int, error) {
	count, err := s.corpus.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("document %s: %w", documentID, domain.ErrDocumentNotFound)
	}

	s.logger.Info("document deleted",
		zap.String("document_id", documentID),
		zap.Int("chunks", count))

	if err := s.RefreshLexical(ctx); err != nil {
		s.logger.Warn("lexical refresh after delete failed", zap.Error(err))
	}
	return count, nil
}

// Documents lists the stored documents.
func (s *Service) Documents(ctx context.Context) ([]domain.Document, error) {
	return s.corpus.Documents(ctx)
}

// RefreshLexical rebuilds the lexical index from the current corpus
// snapshot. Readers keep serving the previous index until the swap.
func (s *Service) RefreshLexical(ctx context.Context) error {
	chunks, err := s.corpus.Corpus(ctx)
	if err != nil {
		return fmt.Errorf("refresh lexical index: %w", err)
	}

	s.lexical.Build(chunks)
	metrics.LexicalIndexRebuilds.Inc()
	metrics.LexicalIndexSize.Set(float64(s.lexical.Size()))
	return nil
}

// embedChunks embeds all chunk texts, using the provider's batch endpoint
// when it has one.
func (s *Service) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if batcher, ok := s.embed.(domain.BatchEmbedder); ok {
		res, err = batcher.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, s.embed, texts)
	}
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d chunks: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	return res.Embeddings, nil
}
