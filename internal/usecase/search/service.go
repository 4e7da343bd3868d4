package search

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/lexical"
)

// Fusion strategies for combining semantic and lexical rankings.
const (
	FusionWeighted = "weighted"
	FusionRRF      = "rrf"
)

// overfetchFactor widens each backend's candidate pool before fusion so the
// merged ranking has enough overlap to be meaningful.
const overfetchFactor = 2

// Config holds fusion settings. Weights must sum to 1 (validated at config
// load); Fusion selects the combination strategy.
type Config struct {
	TopK           int
	SemanticWeight float64
	LexicalWeight  float64
	Fusion         string

	// Either leg can be switched off; the zero value runs both. With both
	// disabled Search always returns empty.
	DisableSemantic bool
	DisableLexical  bool
}

// Service runs hybrid retrieval: semantic and lexical searches execute in
// parallel and their rankings are fused into a single candidate list.
type Service struct {
	semantic SemanticSearcher
	lexical  LexicalSearcher
	cfg      Config
	logger   *zap.Logger
}

// New creates a hybrid search service.
func New(semantic SemanticSearcher, lex LexicalSearcher, cfg Config, logger *zap.Logger) *Service {
	return &Service{semantic: semantic, lexical: lex, cfg: cfg, logger: logger}
}

// Search retrieves and fuses candidates for a query. Either leg may come back
// empty (degraded backend, empty corpus); fusion then ranks on the surviving
// leg alone. Both legs empty yields an empty result, never an error.
func (s *Service) Search(ctx context.Context, query string) []domain.Candidate {
	if query == "" || s.cfg.TopK <= 0 {
		return nil
	}

	fetchK := s.cfg.TopK * overfetchFactor

	var (
		semHits []domain.Candidate
		lexHits []lexical.Scored
	)

	g, gctx := errgroup.WithContext(ctx)
	if !s.cfg.DisableSemantic {
		g.Go(func() error {
			semHits = s.semantic.Search(gctx, query, fetchK)
			return nil
		})
	}
	if !s.cfg.DisableLexical {
		g.Go(func() error {
			lexHits = s.lexical.Search(query, fetchK)
			return nil
		})
	}
	_ = g.Wait() // legs never return errors, they degrade to empty

	s.logger.Debug("hybrid search legs",
		zap.Int("semantic", len(semHits)),
		zap.Int("lexical", len(lexHits)))

	switch s.cfg.Fusion {
	case FusionRRF:
		return fuseRRF(semHits, lexHits, s.cfg.TopK)
	default:
		return s.fuseWeighted(semHits, lexHits)
	}
}

// fuseWeighted merges the two rankings by chunk ID and scores each candidate
// as a weighted sum of its semantic similarity and its max-normalized lexical
// score. A chunk found by only one leg contributes zero on the other.
func (s *Service) fuseWeighted(semHits []domain.Candidate, lexHits []lexical.Scored) []domain.Candidate {
	merged := make(map[string]*domain.Candidate, len(semHits)+len(lexHits))
	order := make([]string, 0, len(semHits)+len(lexHits))

	for _, c := range semHits {
		c := c
		merged[c.Chunk.ID] = &c
		order = append(order, c.Chunk.ID)
	}

	maxLex := 0.0
	for _, h := range lexHits {
		if h.Score > maxLex {
			maxLex = h.Score
		}
	}

	for _, h := range lexHits {
		norm := 0.0
		if maxLex > 0 {
			norm = h.Score / maxLex
		}
		if c, ok := merged[h.Chunk.ID]; ok {
			c.LexicalScore = norm
			continue
		}
		merged[h.Chunk.ID] = &domain.Candidate{Chunk: h.Chunk, LexicalScore: norm}
		order = append(order, h.Chunk.ID)
	}

	fused := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		c := merged[id]
		c.FusedScore = s.cfg.SemanticWeight*c.SemanticScore + s.cfg.LexicalWeight*c.LexicalScore
		fused = append(fused, *c)
	}

	sortCandidates(fused)
	if len(fused) > s.cfg.TopK {
		fused = fused[:s.cfg.TopK]
	}
	return fused
}

// sortCandidates orders by fused score descending with chunk ID as a stable
// tie-break so equal scores rank deterministically.
func sortCandidates(cands []domain.Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].FusedScore != cands[j].FusedScore {
			return cands[i].FusedScore > cands[j].FusedScore
		}
		return cands[i].Chunk.ID < cands[j].Chunk.ID
	})
}
