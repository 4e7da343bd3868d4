// Package lexical implements an in-process BM25 inverted statistical index
// over the chunk corpus. The index is rebuilt wholesale from a corpus snapshot
// and swapped atomically; there is no incremental update path.
package lexical

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

// BM25 parameters (standard Okapi values).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Scored is a lexical search hit with its raw BM25 score.
type Scored struct {
	Chunk domain.Chunk
	Score float64
}

// snapshot holds the immutable per-build index state. Readers load the
// current snapshot once and never observe a partially built index.
type snapshot struct {
	chunks    []domain.Chunk
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	docFreq   map[string]int
}

// Index is a BM25 index with atomic snapshot swapping. Concurrent readers
// need no coordination; Build serializes writers.
type Index struct {
	buildMu  sync.Mutex
	snap     atomic.Pointer[snapshot]
	synonyms map[string][]string
	logger   *zap.Logger
}

// NewIndex creates an empty index. synonyms is the optional query-time
// expansion table (term -> related terms); it may be nil.
func NewIndex(synonyms map[string][]string, logger *zap.Logger) *Index {
	idx := &Index{synonyms: synonyms, logger: logger}
	idx.snap.Store(&snapshot{docFreq: map[string]int{}})
	return idx
}

// Build rebuilds the index in full from the given corpus and swaps it in
// atomically. An empty corpus yields an empty (but valid) index.
func (i *Index) Build(chunks []domain.Chunk) {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	snap := &snapshot{
		chunks:    chunks,
		termFreqs: make([]map[string]int, len(chunks)),
		docLens:   make([]int, len(chunks)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for idx, chunk := range chunks {
		tokens := Tokenize(chunk.Text)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		snap.termFreqs[idx] = tf
		snap.docLens[idx] = len(tokens)
		totalLen += len(tokens)
		for term := range tf {
			snap.docFreq[term]++
		}
	}
	if len(chunks) > 0 {
		snap.avgDocLen = float64(totalLen) / float64(len(chunks))
	}

	i.snap.Store(snap)
	i.logger.Info("Lexical index rebuilt",
		zap.Int("chunks", len(chunks)),
		zap.Int("terms", len(snap.docFreq)),
	)
}

// Size returns the number of chunks in the current index.
func (i *Index) Size() int {
	return len(i.snap.Load().chunks)
}

// Search scores the query against the current snapshot and returns up to k
// hits sorted by descending BM25 score. Hits with score <= 0 are excluded.
// An empty corpus or an all-stopword query returns no hits.
func (i *Index) Search(query string, k int) []Scored {
	snap := i.snap.Load()
	if len(snap.chunks) == 0 || k <= 0 {
		return nil
	}

	tokens := expandTokens(Tokenize(query), i.synonyms)
	if len(tokens) == 0 {
		return nil
	}

	n := float64(len(snap.chunks))
	scored := make([]Scored, 0, len(snap.chunks))

	for idx := range snap.chunks {
		score := 0.0
		dl := float64(snap.docLens[idx])
		for _, term := range tokens {
			tf := snap.termFreqs[idx][term]
			if tf == 0 {
				continue
			}
			df := float64(snap.docFreq[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := bm25K1 * (1 - bm25B + bm25B*dl/snap.avgDocLen)
			score += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + norm)
		}
		if score > 0 {
			scored = append(scored, Scored{Chunk: snap.chunks[idx], Score: score})
		}
	}

	// Deterministic ordering: score desc, chunk ID as tie-break.
	sort.Slice(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Chunk.ID < scored[b].Chunk.ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
