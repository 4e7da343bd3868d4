package search

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/lexical"
)

func TestFuseRRF_OverlapRanksHighest(t *testing.T) {
	semHits := []domain.Candidate{
		{Chunk: chunk("a"), SemanticScore: 0.9},
		{Chunk: chunk("b"), SemanticScore: 0.8},
	}
	lexHits := []lexical.Scored{
		{Chunk: chunk("b"), Score: 5.0},
		{Chunk: chunk("c"), Score: 3.0},
	}

	got := fuseRRF(semHits, lexHits, 5)
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	// b appears in both lists so its summed contribution beats either
	// single-list top hit.
	if got[0].Chunk.ID != "b" {
		t.Errorf("top = %s, want b", got[0].Chunk.ID)
	}
}

func TestFuseRRF_ScoreContributions(t *testing.T) {
	semHits := []domain.Candidate{{Chunk: chunk("a"), SemanticScore: 0.9}}
	lexHits := []lexical.Scored{{Chunk: chunk("a"), Score: 2.0}}

	got := fuseRRF(semHits, lexHits, 5)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	// rank 0 in both lists: 1/61 + 1/61
	want := 2.0 / 61.0
	if !closeTo(got[0].FusedScore, want) {
		t.Errorf("fused = %f, want %f", got[0].FusedScore, want)
	}
	// Raw per-leg scores survive fusion for downstream re-ranking.
	if got[0].SemanticScore != 0.9 {
		t.Errorf("semantic score = %f", got[0].SemanticScore)
	}
	if got[0].LexicalScore != 2.0 {
		t.Errorf("lexical score = %f", got[0].LexicalScore)
	}
}

func TestFuseRRF_RankDampening(t *testing.T) {
	semHits := []domain.Candidate{
		{Chunk: chunk("a"), SemanticScore: 0.9},
		{Chunk: chunk("b"), SemanticScore: 0.8},
		{Chunk: chunk("c"), SemanticScore: 0.7},
	}

	got := fuseRRF(semHits, nil, 5)
	for i, want := range []float64{1.0 / 61.0, 1.0 / 62.0, 1.0 / 63.0} {
		if !closeTo(got[i].FusedScore, want) {
			t.Errorf("rank %d fused = %f, want %f", i, got[i].FusedScore, want)
		}
	}
}

func TestFuseRRF_TruncatesToTopK(t *testing.T) {
	semHits := []domain.Candidate{
		{Chunk: chunk("a")}, {Chunk: chunk("b")}, {Chunk: chunk("c")},
	}

	got := fuseRRF(semHits, nil, 2)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
}

func TestFuseRRF_EmptyInputs(t *testing.T) {
	if got := fuseRRF(nil, nil, 5); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestSearch_RRFStrategySelected(t *testing.T) {
	sem := &mockSemantic{hits: []domain.Candidate{{Chunk: chunk("a"), SemanticScore: 0.9}}}
	cfg := Config{TopK: 5, SemanticWeight: 0.6, LexicalWeight: 0.4, Fusion: FusionRRF}
	svc := New(sem, &mockLexical{}, cfg, zap.NewNop())

	got := svc.Search(context.Background(), "query")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if !closeTo(got[0].FusedScore, 1.0/61.0) {
		t.Errorf("fused = %f, want rrf contribution 1/61", got[0].FusedScore)
	}
}
