package shard

import (
	"context"
	"database/sql"
	"fmt"
)

// ContentType is the closed set of content kinds a scan verdict can apply
// to.
type ContentType string

const (
	ContentPaste  ContentType = "paste"
	ContentKV     ContentType = "kv"
	ContentMemory ContentType = "memory"
)

// ScanVerdict is one content-safety classification result.
type ScanVerdict struct {
	ContentID   string      `db:"content_id" json:"contentId"`
	ContentType ContentType `db:"content_type" json:"contentType"`
	Safe        bool        `db:"safe" json:"safe"`
	Confidence  float64     `db:"confidence" json:"confidence"`
	Reason      *string     `db:"reason" json:"reason,omitempty"`
	ScannedAt   int64       `db:"scanned_at" json:"scannedAt"`
}

// ScanStore upserts a verdict; the latest write always wins.
func (s *Shard) ScanStore(ctx context.Context, verdict ScanVerdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	confidence := clamp01(verdict.Confidence)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO content_scans (content_id, content_type, safe, confidence, reason, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_id) DO UPDATE SET
		   content_type = excluded.content_type,
		   safe = excluded.safe,
		   confidence = excluded.confidence,
		   reason = excluded.reason,
		   scanned_at = excluded.scanned_at`,
		verdict.ContentID, verdict.ContentType, verdict.Safe, confidence, verdict.Reason, verdict.ScannedAt)
	if err != nil {
		return fmt.Errorf("scan store: %w", err)
	}
	return nil
}

// ScanGet returns the verdict for id, or nil if never scanned.
func (s *Shard) ScanGet(ctx context.Context, id string) (*ScanVerdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v ScanVerdict
	err := s.db.GetContext(ctx, &v,
		`SELECT content_id, content_type, safe, confidence, reason, scanned_at FROM content_scans WHERE content_id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan get: %w", err)
	}
	return &v, nil
}

// ScanList lists verdicts, optionally filtered by content type and/or
// restricted to safe-only, capped at limit (clamped to 1000).
func (s *Shard) ScanList(ctx context.Context, contentType *ContentType, safeOnly bool, limit int) ([]ScanVerdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	query := `SELECT content_id, content_type, safe, confidence, reason, scanned_at FROM content_scans WHERE 1=1`
	var args []interface{}
	if contentType != nil {
		query += ` AND content_type = ?`
		args = append(args, *contentType)
	}
	if safeOnly {
		query += ` AND safe = 1`
	}
	query += ` ORDER BY scanned_at DESC LIMIT ?`
	args = append(args, limit)

	var rows []ScanVerdict
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}
	return rows, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
