package rerank

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/lexical"
)

// Heuristic scoring weights. The raw score is normalized to [0,1] before
// blending with the fused retrieval score.
const (
	phraseBonus   = 2.0
	bigramBonus   = 1.0
	coverageBonus = 1.0
	coverageScale = 0.5
	termFreqUnit  = 0.1
	termFreqCap   = 0.3

	heuristicWeight = 0.6
	fusedWeight     = 0.4
)

// Heuristic re-ranks candidates with cheap lexical signals: exact phrase
// presence, bigram matches, query term coverage, and capped term frequency.
// It needs no model round-trip and is fully deterministic.
type Heuristic struct {
	logger *zap.Logger
}

// NewHeuristic creates a heuristic reranker.
func NewHeuristic(logger *zap.Logger) *Heuristic {
	return &Heuristic{logger: logger}
}

// Rerank scores each candidate against the query and reorders by the blended
// score. The result is a prefix-sized reordering of the input: no candidate
// is invented and at most topK are returned.
func (h *Heuristic) Rerank(_ context.Context, query string, candidates []domain.Candidate, topK int) []domain.Candidate {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	tokens := lexical.Tokenize(queryLower)
	terms := uniqueTerms(tokens)

	reranked := make([]domain.Candidate, len(candidates))
	copy(reranked, candidates)

	for i := range reranked {
		heuristic := scorePair(queryLower, tokens, terms, reranked[i].Chunk.Text)
		reranked[i].RerankScore = heuristicWeight*heuristic + fusedWeight*reranked[i].FusedScore
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

	h.logger.Debug("heuristic rerank",
		zap.Int("candidates", len(candidates)),
		zap.Float64("top_score", reranked[0].RerankScore))
	return reranked
}

// scorePair computes the normalized heuristic relevance of a text to the
// query in [0,1]. tokens is the stopword-filtered query token stream in
// order; terms is the deduplicated set.
func scorePair(queryLower string, tokens, terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	textLower := strings.ToLower(text)

	score := 0.0

	if strings.Contains(textLower, queryLower) {
		score += phraseBonus
	}

	if matchesBigram(tokens, textLower) {
		score += bigramBonus
	}

	found := 0
	for _, term := range terms {
		if strings.Contains(textLower, term) {
			found++
		}
	}
	coverage := float64(found) / float64(len(terms))
	if coverage == 1.0 {
		score += coverageBonus
	}
	score += coverage * coverageScale

	for _, term := range terms {
		tf := float64(strings.Count(textLower, term)) * termFreqUnit
		if tf > termFreqCap {
			tf = termFreqCap
		}
		score += tf
	}

	// Maximum achievable raw score for this query length.
	maxScore := phraseBonus + coverageBonus + coverageScale + termFreqCap*float64(len(terms))
	if len(tokens) >= 2 {
		maxScore += bigramBonus
	}
	return score / maxScore
}

// matchesBigram reports whether any adjacent query token pair occurs as a
// phrase in the text.
func matchesBigram(tokens []string, textLower string) bool {
	for i := 0; i+1 < len(tokens); i++ {
		if strings.Contains(textLower, tokens[i]+" "+tokens[i+1]) {
			return true
		}
	}
	return false
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	var terms []string
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}
