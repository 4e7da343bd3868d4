package domain

// Candidate is a retrieval hit with per-strategy scores. Produced per query,
// never persisted.
type Candidate struct {
	Chunk         Chunk
	SemanticScore float64
	LexicalScore  float64
	FusedScore    float64
	RerankScore   float64
}
