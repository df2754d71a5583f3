package shard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// MemoryItem is one stored vector-memory row.
type MemoryItem struct {
	ID        string          `db:"id" json:"id"`
	Text      string          `db:"text" json:"text"`
	Embedding []float64       `db:"-" json:"embedding"`
	RawVector string          `db:"embedding" json:"-"`
	Metadata  json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt int64           `db:"created_at" json:"createdAt"`
	UpdatedAt int64           `db:"updated_at" json:"updatedAt"`
}

// MemorySearchResult is one hit from MemorySearch.
type MemorySearchResult struct {
	MemoryItem
	Similarity float64 `json:"similarity"`
}

// MemoryStore upserts items by id, preserving created_at on overwrite.
func (s *Shard) MemoryStore(ctx context.Context, items []MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUnix()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if len(item.Embedding) < 1 {
			return fmt.Errorf("memory item %q: embedding must have length >= 1", item.ID)
		}
		vec, err := json.Marshal(item.Embedding)
		if err != nil {
			return fmt.Errorf("memory item %q: marshal embedding: %w", item.ID, err)
		}

		var createdAt int64
		err = tx.GetContext(ctx, &createdAt, `SELECT created_at FROM memory WHERE id = ?`, item.ID)
		switch {
		case err == sql.ErrNoRows:
			createdAt = now
			_, err = tx.ExecContext(ctx,
				`INSERT INTO memory (id, text, embedding, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
				item.ID, item.Text, string(vec), string(item.Metadata), now, now)
		case err != nil:
			return fmt.Errorf("memory item %q: %w", item.ID, err)
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE memory SET text = ?, embedding = ?, metadata = ?, updated_at = ? WHERE id = ?`,
				item.Text, string(vec), string(item.Metadata), now, item.ID)
		}
		if err != nil {
			return fmt.Errorf("memory item %q: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

// MemorySearch scans every stored item, computes cosine similarity against
// queryEmbedding, drops results below threshold, and returns the top
// `limit` (clamped to 100) sorted by descending similarity.
func (s *Shard) MemorySearch(ctx context.Context, queryEmbedding []float64, limit int, threshold float64) ([]MemorySearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var rows []MemoryItem
	err := s.db.SelectContext(ctx, &rows, `SELECT id, text, embedding, metadata, created_at, updated_at FROM memory`)
	if err != nil {
		return nil, fmt.Errorf("memory search: %w", err)
	}

	results := make([]MemorySearchResult, 0, len(rows))
	for _, row := range rows {
		var vec []float64
		if err := json.Unmarshal([]byte(row.RawVector), &vec); err != nil {
			continue
		}
		sim := cosineSimilarity(queryEmbedding, vec)
		if sim < threshold {
			continue
		}
		row.Embedding = vec
		results = append(results, MemorySearchResult{MemoryItem: row, Similarity: sim})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// MemoryDelete deletes ids that currently exist, reporting the ids actually
// removed.
func (s *Shard) MemoryDelete(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []string
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("memory delete: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM memory WHERE id = ?`, id)
		if err != nil {
			return nil, fmt.Errorf("memory delete %q: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			deleted = append(deleted, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("memory delete: %w", err)
	}
	return deleted, nil
}

// MemoryList returns stored items in id order, paginated.
func (s *Shard) MemoryList(ctx context.Context, limit, offset int) ([]MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	var rows []MemoryItem
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, text, embedding, metadata, created_at, updated_at FROM memory ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("memory list: %w", err)
	}
	for i := range rows {
		var vec []float64
		if err := json.Unmarshal([]byte(rows[i].RawVector), &vec); err == nil {
			rows[i].Embedding = vec
		}
	}
	return rows, nil
}

// MemoryClear deletes every stored item.
func (s *Shard) MemoryClear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM memory`)
	if err != nil {
		return fmt.Errorf("memory clear: %w", err)
	}
	return nil
}

// cosineSimilarity returns 0 if the vectors differ in length or either has
// zero magnitude, otherwise the standard cosine similarity in [-1, 1].
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
