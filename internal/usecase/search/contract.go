package search

import (
	"context"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/lexical"
)

// SemanticSearcher returns nearest-neighbor candidates for a query. Backend
// failures surface as an empty slice, not an error.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, k int) []domain.Candidate
}

// LexicalSearcher returns BM25-scored chunks for a query.
type LexicalSearcher interface {
	Search(query string, k int) []lexical.Scored
}
