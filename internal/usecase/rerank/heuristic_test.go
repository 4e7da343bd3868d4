package rerank

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/lexical"
)

func cand(id, text string, fused float64) domain.Candidate {
	return domain.Candidate{
		Chunk:      domain.Chunk{ID: id, Text: text, Source: "doc.md"},
		FusedScore: fused,
	}
}

func pairScore(query, text string) float64 {
	tokens := lexical.Tokenize(query)
	return scorePair(query, tokens, uniqueTerms(tokens), text)
}

func TestHeuristicRerank_PhraseMatchWins(t *testing.T) {
	r := NewHeuristic(zap.NewNop())
	candidates := []domain.Candidate{
		cand("a", "Some unrelated content about cooking recipes", 0.5),
		cand("b", "Ahmed worked with docker containers in production", 0.5),
	}

	got := r.Rerank(context.Background(), "docker containers", candidates, 5)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Chunk.ID != "b" {
		t.Errorf("top = %s, want b", got[0].Chunk.ID)
	}
	if got[0].RerankScore <= got[1].RerankScore {
		t.Errorf("scores not descending: %f, %f", got[0].RerankScore, got[1].RerankScore)
	}
}

func TestHeuristicRerank_NeverInventsCandidates(t *testing.T) {
	r := NewHeuristic(zap.NewNop())
	candidates := []domain.Candidate{
		cand("a", "text one", 0.1),
		cand("b", "text two", 0.2),
	}

	got := r.Rerank(context.Background(), "query", candidates, 10)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	ids := map[string]bool{}
	for _, c := range candidates {
		ids[c.Chunk.ID] = true
	}
	for _, c := range got {
		if !ids[c.Chunk.ID] {
			t.Errorf("invented candidate %s", c.Chunk.ID)
		}
	}
}

func TestHeuristicRerank_CapsAtTopK(t *testing.T) {
	r := NewHeuristic(zap.NewNop())
	candidates := []domain.Candidate{
		cand("a", "docker", 0.9),
		cand("b", "docker", 0.8),
		cand("c", "docker", 0.7),
	}

	got := r.Rerank(context.Background(), "docker", candidates, 2)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
}

func TestHeuristicRerank_EmptyInput(t *testing.T) {
	r := NewHeuristic(zap.NewNop())

	if got := r.Rerank(context.Background(), "query", nil, 5); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestHeuristicRerank_BlendsFusedScore(t *testing.T) {
	r := NewHeuristic(zap.NewNop())
	// Identical text, different retrieval scores: the fused component must
	// decide the order.
	candidates := []domain.Candidate{
		cand("a", "docker deployment notes", 0.1),
		cand("b", "docker deployment notes", 0.9),
	}

	got := r.Rerank(context.Background(), "docker", candidates, 5)
	if got[0].Chunk.ID != "b" {
		t.Errorf("top = %s, want b (higher fused score)", got[0].Chunk.ID)
	}
}

func TestHeuristicRerank_DoesNotMutateInput(t *testing.T) {
	r := NewHeuristic(zap.NewNop())
	candidates := []domain.Candidate{
		cand("a", "nothing relevant", 0.1),
		cand("b", "docker docker docker", 0.9),
	}

	r.Rerank(context.Background(), "docker", candidates, 5)
	if candidates[0].Chunk.ID != "a" || candidates[1].Chunk.ID != "b" {
		t.Error("input slice reordered")
	}
	if candidates[0].RerankScore != 0 {
		t.Error("input slice mutated")
	}
}

func TestScorePair_Bounds(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
	}{
		{"exact phrase plus full coverage", "docker kubernetes", "docker kubernetes docker kubernetes docker kubernetes"},
		{"no overlap", "docker kubernetes", "cooking pasta recipes"},
		{"partial coverage", "docker kubernetes helm", "docker only here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := pairScore(tt.query, tt.text)
			if score < 0 || score > 1+1e-9 {
				t.Errorf("score %f out of [0,1]", score)
			}
		})
	}
}

func TestScorePair_PerfectMatchScoresOne(t *testing.T) {
	// Text containing the exact phrase, a matching bigram, all terms, and
	// each term at the frequency cap reaches the maximum achievable score.
	score := pairScore("docker kubernetes", "docker kubernetes docker kubernetes docker kubernetes")
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("score = %f, want 1.0", score)
	}
}

func TestScorePair_BigramBeatsScatteredTerms(t *testing.T) {
	// Both texts contain both terms, but only one keeps them adjacent.
	adjacent := pairScore("docker kubernetes tooling", "experience running docker kubernetes clusters")
	scattered := pairScore("docker kubernetes tooling", "docker builds and separately kubernetes manifests")
	if adjacent <= scattered {
		t.Errorf("adjacent = %f, scattered = %f; bigram match should score higher", adjacent, scattered)
	}
}

func TestScorePair_StopwordOnlyQuery(t *testing.T) {
	if got := pairScore("the of and", "anything at all"); got != 0 {
		t.Errorf("got %f, want 0", got)
	}
}

func TestUniqueTerms_FiltersStopwordsAndDedups(t *testing.T) {
	got := uniqueTerms(lexical.Tokenize("docker and docker and kubernetes"))
	want := []string{"docker", "kubernetes"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d = %s, want %s", i, got[i], want[i])
		}
	}
}
