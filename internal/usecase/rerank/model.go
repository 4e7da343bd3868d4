package rerank

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

// neutralScore is assigned when a pairwise rating cannot be obtained, so a
// flaky model degrades single candidates instead of the whole ranking.
const neutralScore = 0.5

// Model re-ranks candidates by asking the language model for a relevance
// rating per query-document pair. Slower than Heuristic but captures
// semantic interactions the lexical signals miss.
type Model struct {
	gen    Generator
	logger *zap.Logger
}

// NewModel creates a model-backed reranker.
func NewModel(gen Generator, logger *zap.Logger) *Model {
	return &Model{gen: gen, logger: logger}
}

// Rerank rates each candidate in [0,1] and reorders by the rating. Per-pair
// failures score neutral; the output is always a subset of the input capped
// at topK.
func (m *Model) Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) []domain.Candidate {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	reranked := make([]domain.Candidate, len(candidates))
	copy(reranked, candidates)

	for i := range reranked {
		reranked[i].RerankScore = m.ratePair(ctx, query, reranked[i].Chunk.Text)
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].RerankScore != reranked[j].RerankScore {
			return reranked[i].RerankScore > reranked[j].RerankScore
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})

	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}

func (m *Model) ratePair(ctx context.Context, query, text string) float64 {
	prompt := fmt.Sprintf(`Rate how relevant this passage is to the question on a scale from 0.0 to 1.0.
Answer with only the number.

Question: %s

Passage: %s

Relevance:`, query, text)

	resp, err := m.gen.Generate(ctx, prompt)
	if err != nil {
		m.logger.Warn("pairwise rating failed", zap.Error(err))
		return neutralScore
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		m.logger.Warn("pairwise rating unparseable", zap.String("response", resp))
		return neutralScore
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
