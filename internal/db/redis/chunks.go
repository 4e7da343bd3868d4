package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/medevs/local-smart-portfolio/internal/db"
)

// headingSeparator joins chunk headings into one hash field.
const headingSeparator = "\x1f"

// Upsert stores chunk records as hashes in a single DoMulti round-trip.
func (s *Store) Upsert(ctx context.Context, records []db.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(records))
	for i, rec := range records {
		cmd := s.b().Hset().Key(s.chunkKey(rec.ID)).FieldValue().
			FieldValue("__content", rec.Text).
			FieldValue("__document_id", rec.DocumentID).
			FieldValue("__source", rec.Source).
			FieldValue("__position", strconv.Itoa(rec.Position)).
			FieldValue("__headings", strings.Join(rec.Headings, headingSeparator)).
			FieldValue("__vector", vectorToBytes(rec.Vector))
		cmds[i] = cmd.Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("chunk %s: %w", records[i].ID, err)}
		}
	}
	return nil
}

// DeleteByDocument removes all chunk hashes belonging to a document.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	query := fmt.Sprintf("@__document_id:{%s}", escapeTag(documentID))

	args := []string{
		s.indexName(), query,
		"RETURN", "0",
		"LIMIT", "0", "10000",
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}

	keys := make([]string, 0, len(raw))
	// RETURN 0 yields a 1-stride reply: [total, key1, key2, ...]
	for i := 1; i < len(raw); i++ {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	delCmd := s.b().Del().Key(keys...).Build()
	if err := s.do(ctx, delCmd).Error(); err != nil {
		return 0, &db.Error{Op: db.OpDel, Err: err}
	}
	return len(keys), nil
}

// Snapshot returns the full chunk corpus without vectors, for lexical rebuild.
func (s *Store) Snapshot(ctx context.Context) ([]db.ChunkRecord, error) {
	keys, err := s.scanKeys(ctx, s.prefix+"chunk:*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	records := make([]db.ChunkRecord, 0, len(keys))
	for i, res := range results {
		fields, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		if len(fields) == 0 {
			// Key expired between SCAN and HGETALL.
			continue
		}
		records = append(records, recordFromFields(strings.TrimPrefix(keys[i], s.prefix+"chunk:"), fields))
	}
	// SCAN order is arbitrary; sort so rebuilds and document listings are stable.
	sort.Slice(records, func(i, j int) bool {
		if records[i].DocumentID != records[j].DocumentID {
			return records[i].DocumentID < records[j].DocumentID
		}
		return records[i].Position < records[j].Position
	})
	return records, nil
}

// scanKeys iterates SCAN until the cursor returns to zero.
func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	cursor := uint64(0)

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(500).Build()
		entry, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

// recordFromFields reconstructs a ChunkRecord from hash fields (vector omitted).
func recordFromFields(id string, fields map[string]string) db.ChunkRecord {
	rec := db.ChunkRecord{
		ID:         id,
		Text:       fields["__content"],
		DocumentID: fields["__document_id"],
		Source:     fields["__source"],
	}
	if pos, err := strconv.Atoi(fields["__position"]); err == nil {
		rec.Position = pos
	}
	if h := fields["__headings"]; h != "" {
		rec.Headings = strings.Split(h, headingSeparator)
	}
	return rec
}

// vectorToBytes serializes []float32 into the little-endian binary form
// expected by FT.SEARCH PARAMS BLOB.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// escapeTag escapes RediSearch TAG syntax characters in a tag value.
func escapeTag(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ',', '.', '<', '>', '{', '}', '[', ']', '"', '\'', ':', ';',
			'!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '-', '+',
			'=', '~', '|', ' ', '/', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
