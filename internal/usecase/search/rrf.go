package search

import (
	"sort"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/lexical"
)

// rrfK dampens the contribution of lower-ranked results (standard constant).
const rrfK = 60

// fuseRRF combines semantic and lexical rankings via Reciprocal Rank Fusion.
// Each list contributes 1/(k+rank+1) per chunk; chunks in both lists sum
// their contributions. Original per-leg scores are preserved on the
// candidate for downstream re-ranking.
func fuseRRF(semHits []domain.Candidate, lexHits []lexical.Scored, topK int) []domain.Candidate {
	merged := make(map[string]*domain.Candidate, len(semHits)+len(lexHits))
	order := make([]string, 0, len(semHits)+len(lexHits))

	for rank, c := range semHits {
		c := c
		c.FusedScore = rrfScore(rank)
		merged[c.Chunk.ID] = &c
		order = append(order, c.Chunk.ID)
	}

	for rank, h := range lexHits {
		if c, ok := merged[h.Chunk.ID]; ok {
			c.LexicalScore = h.Score
			c.FusedScore += rrfScore(rank)
			continue
		}
		merged[h.Chunk.ID] = &domain.Candidate{
			Chunk:        h.Chunk,
			LexicalScore: h.Score,
			FusedScore:   rrfScore(rank),
		}
		order = append(order, h.Chunk.ID)
	}

	fused := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		fused = append(fused, *merged[id])
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].Chunk.ID < fused[j].Chunk.ID
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}

func rrfScore(rank int) float64 {
	return 1.0 / float64(rrfK+rank+1)
}
