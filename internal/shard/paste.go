package shard

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const pasteIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Paste is one stored paste row. Immutable after creation.
type Paste struct {
	ID        string  `db:"id" json:"id"`
	Content   string  `db:"content" json:"content"`
	Title     *string `db:"title" json:"title,omitempty"`
	Language  *string `db:"language" json:"language,omitempty"`
	CreatedAt int64   `db:"created_at" json:"createdAt"`
	ExpiresAt *int64  `db:"expires_at" json:"expiresAt,omitempty"`
}

// PasteOptions configures an optional title, language, and TTL for
// PasteCreate.
type PasteOptions struct {
	Title    *string
	Language *string
	TTL      *time.Duration
}

// PasteCreate stores content and returns its randomly generated 8-char id.
func (s *Shard) PasteCreate(ctx context.Context, content string, opts PasteOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUnix()
	var expiresAt *int64
	if opts.TTL != nil {
		exp := now + int64(opts.TTL.Seconds())
		expiresAt = &exp
	}

	for attempt := 0; attempt < 5; attempt++ {
		id, err := randomPasteID()
		if err != nil {
			return "", fmt.Errorf("generate paste id: %w", err)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO paste (id, content, title, language, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, content, opts.Title, opts.Language, now, expiresAt)
		if err == nil {
			return id, nil
		}
		if !isUniqueViolation(err) {
			return "", fmt.Errorf("paste create: %w", err)
		}
		// id collision on an 8-char space: extremely unlikely, retry.
	}
	return "", fmt.Errorf("paste create: exhausted id generation attempts")
}

// PasteGet returns the paste for id, or nil if absent or expired.
func (s *Shard) PasteGet(ctx context.Context, id string) (*Paste, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM paste WHERE id = ? AND expires_at IS NOT NULL AND expires_at <= ?`, id, nowUnix())
	if err != nil {
		return nil, fmt.Errorf("paste expire: %w", err)
	}

	var p Paste
	err = s.db.GetContext(ctx, &p, `SELECT id, content, title, language, created_at, expires_at FROM paste WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("paste get: %w", err)
	}
	return &p, nil
}

// PasteDelete removes a paste, reporting whether one existed.
func (s *Shard) PasteDelete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM paste WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("paste delete: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func randomPasteID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	id := make([]byte, 8)
	for i, b := range buf {
		id[i] = pasteIDAlphabet[int(b)%len(pasteIDAlphabet)]
	}
	return string(id), nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint violations as a plain error
	// whose message names the constraint; there's no typed sentinel to
	// switch on across driver versions.
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
