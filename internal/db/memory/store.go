// Package memory provides an in-memory db.Store using brute-force cosine
// similarity. Intended for local development and tests; contents are lost on
// restart.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/medevs/local-smart-portfolio/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps chunk records and key-value pairs in process memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]db.ChunkRecord
	kv      map[string][]byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]db.ChunkRecord),
		kv:      make(map[string][]byte),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady always succeeds immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// EnsureIndex is a no-op; the brute-force scan needs no index structure.
func (s *Store) EnsureIndex(_ context.Context, _ int) error { return nil }

// Upsert stores chunk records, replacing any with the same ID.
func (s *Store) Upsert(_ context.Context, records []db.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	return nil
}

// SearchKNN returns the k nearest chunks by cosine distance, closest first.
func (s *Store) SearchKNN(_ context.Context, vector []float32, k int) ([]db.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.records) == 0 {
		return nil, nil
	}

	hits := make([]db.Hit, 0, len(s.records))
	for _, rec := range s.records {
		if len(rec.Vector) == 0 {
			continue
		}
		hits = append(hits, db.Hit{
			Record:   rec,
			Distance: cosineDistance(vector, rec.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByDocument removes all chunks of a document.
func (s *Store) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, rec := range s.records {
		if rec.DocumentID == documentID {
			delete(s.records, id)
			count++
		}
	}
	return count, nil
}

// Snapshot returns all stored chunk records.
func (s *Store) Snapshot(_ context.Context) ([]db.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]db.ChunkRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	// Stable ordering keeps rebuilds and tests deterministic.
	sort.Slice(records, func(i, j int) bool {
		if records[i].DocumentID != records[j].DocumentID {
			return records[i].DocumentID < records[j].DocumentID
		}
		return records[i].Position < records[j].Position
	})
	return records, nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = append([]byte(nil), value...)
	return nil
}

// cosineDistance returns 1 - cosine similarity, matching the metric used by
// the Redis backend so both report distances in [0, 2].
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
