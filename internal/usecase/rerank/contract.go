package rerank

import (
	"context"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

// Reranker re-scores fused candidates against the original query and returns
// the top results. Implementations must never add candidates or return more
// than topK, and must degrade to fused order rather than fail.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) []domain.Candidate
}

// Generator produces a completion for a prompt. Used by the model-backed
// reranker for pairwise relevance ratings.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
