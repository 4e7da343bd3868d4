package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/medevs/local-smart-portfolio/internal/db"
)

// EnsureIndex creates the FT vector index over chunk hashes if it does not
// exist yet. The index carries a TAG field for document-scoped deletes and a
// FLAT FLOAT32 cosine vector field.
func (s *Store) EnsureIndex(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}

	args := []string{
		s.indexName(),
		"ON", "HASH",
		"PREFIX", "1", s.prefix + "chunk:",
		"SCHEMA",
		"__document_id", "TAG",
		"__source", "TAG",
		"__vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dimensions),
		"DISTANCE_METRIC", "COSINE",
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}
