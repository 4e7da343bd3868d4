package pipeline

import (
	"context"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/usecase/router"
)

// Router classifies a query and decides whether retrieval runs.
type Router interface {
	Route(query string, history []domain.Message) router.Decision
}

// Rewriter reformulates a query for retrieval. It never fails; error paths
// degrade to a usable query internally.
type Rewriter interface {
	Rewrite(ctx context.Context, query string, history []domain.Message) string
}

// Searcher runs hybrid retrieval and returns fused candidates.
type Searcher interface {
	Search(ctx context.Context, query string) []domain.Candidate
}

// Reranker re-scores candidates against the original query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) []domain.Candidate
}

// Generator produces the final answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (<-chan domain.StreamChunk, error)
}
