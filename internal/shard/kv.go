package shard

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func nowUnix() int64 {
	return time.Now().Unix()
}

// KVEntry is one stored key-value row.
type KVEntry struct {
	Key       string  `db:"key" json:"key"`
	Value     string  `db:"value" json:"value"`
	Metadata  *string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt int64   `db:"created_at" json:"createdAt"`
	UpdatedAt int64   `db:"updated_at" json:"updatedAt"`
	ExpiresAt *int64  `db:"expires_at" json:"expiresAt,omitempty"`
}

// SetOptions configures an optional metadata blob and TTL for KVSet.
type SetOptions struct {
	Metadata *string
	TTL      *time.Duration
}

// KVSet upserts key. Created reports whether the row did not previously
// exist; on overwrite, created_at is preserved from the original row.
func (s *Shard) KVSet(ctx context.Context, key, value string, opts SetOptions) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUnix()
	var expiresAt *int64
	if opts.TTL != nil {
		exp := now + int64(opts.TTL.Seconds())
		expiresAt = &exp
	}

	var existingCreatedAt int64
	err = s.db.GetContext(ctx, &existingCreatedAt, `SELECT created_at FROM kv WHERE key = ?`, key)
	switch {
	case err == sql.ErrNoRows:
		created = true
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO kv (key, value, metadata, created_at, updated_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
			key, value, opts.Metadata, now, now, expiresAt)
	case err != nil:
		return false, fmt.Errorf("kv set: %w", err)
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE kv SET value = ?, metadata = ?, updated_at = ?, expires_at = ? WHERE key = ?`,
			value, opts.Metadata, now, expiresAt, key)
	}
	if err != nil {
		return false, fmt.Errorf("kv set: %w", err)
	}
	return created, nil
}

// KVGet returns the row for key, or nil if absent or expired. Expired rows
// are cleaned up lazily as they're read.
func (s *Shard) KVGet(ctx context.Context, key string) (*KVEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expireKV(ctx, key); err != nil {
		return nil, err
	}

	var entry KVEntry
	err := s.db.GetContext(ctx, &entry, `SELECT key, value, metadata, created_at, updated_at, expires_at FROM kv WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv get: %w", err)
	}
	return &entry, nil
}

// KVDelete removes key, reporting whether a row was actually removed.
func (s *Shard) KVDelete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("kv delete: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// KVList lists non-expired keys, optionally filtered by prefix, capped at
// limit (clamped to 1000).
func (s *Shard) KVList(ctx context.Context, prefix string, limit int) ([]KVEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	if err := s.expireAllKV(ctx); err != nil {
		return nil, err
	}

	var rows []KVEntry
	err := s.db.SelectContext(ctx, &rows,
		`SELECT key, value, metadata, created_at, updated_at, expires_at FROM kv WHERE key LIKE ? ORDER BY key ASC LIMIT ?`,
		prefix+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}
	return rows, nil
}

func (s *Shard) expireKV(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?`, key, nowUnix())
	return err
}

func (s *Shard) expireAllKV(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, nowUnix())
	return err
}
