package shard

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"
)

const (
	lockTTLMin     = 10 * time.Second
	lockTTLMax     = 300 * time.Second
	lockTTLDefault = 60 * time.Second
	lockTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// LockResult is the outcome of a lock/status call.
type LockResult struct {
	Acquired  bool   `json:"acquired"`
	Name      string `json:"name"`
	Token     string `json:"token,omitempty"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
	HeldUntil *int64 `json:"heldUntil,omitempty"`
}

// clampLockTTL clamps ttl into [10s, 300s], defaulting to 60s when unset.
func clampLockTTL(ttl *time.Duration) time.Duration {
	if ttl == nil {
		return lockTTLDefault
	}
	if *ttl < lockTTLMin {
		return lockTTLMin
	}
	if *ttl > lockTTLMax {
		return lockTTLMax
	}
	return *ttl
}

// Lock attempts to acquire name for the given TTL (clamped into [10,300]
// seconds). Acquisition succeeds iff no unexpired row currently exists.
func (s *Shard) Lock(ctx context.Context, name string, ttl *time.Duration) (LockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepLock(ctx, name); err != nil {
		return LockResult{}, err
	}

	var existing int
	err := s.db.GetContext(ctx, &existing, `SELECT COUNT(*) FROM lock WHERE name = ?`, name)
	if err != nil {
		return LockResult{}, fmt.Errorf("lock check: %w", err)
	}
	if existing > 0 {
		return LockResult{Acquired: false, Name: name}, nil
	}

	token, err := randomToken(32)
	if err != nil {
		return LockResult{}, fmt.Errorf("generate lock token: %w", err)
	}
	now := nowUnix()
	expiresAt := now + int64(clampLockTTL(ttl).Seconds())

	_, err = s.db.ExecContext(ctx, `INSERT INTO lock (name, token, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		name, token, now, expiresAt)
	if err != nil {
		return LockResult{}, fmt.Errorf("lock acquire: %w", err)
	}

	return LockResult{Acquired: true, Name: name, Token: token, ExpiresAt: &expiresAt, HeldUntil: &expiresAt}, nil
}

// Unlock releases name, only if token matches the current holder.
func (s *Shard) Unlock(ctx context.Context, name, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepLock(ctx, name); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM lock WHERE name = ? AND token = ?`, name, token)
	if err != nil {
		return false, fmt.Errorf("unlock: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Extend renews name's expiry, only if token matches the current holder and
// the lock has not already expired.
func (s *Shard) Extend(ctx context.Context, name, token string, ttl *time.Duration) (LockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepLock(ctx, name); err != nil {
		return LockResult{}, err
	}

	newExpiresAt := nowUnix() + int64(clampLockTTL(ttl).Seconds())
	res, err := s.db.ExecContext(ctx, `UPDATE lock SET expires_at = ? WHERE name = ? AND token = ?`,
		newExpiresAt, name, token)
	if err != nil {
		return LockResult{}, fmt.Errorf("extend: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return LockResult{Acquired: false, Name: name}, nil
	}
	return LockResult{Acquired: true, Name: name, Token: token, ExpiresAt: &newExpiresAt, HeldUntil: &newExpiresAt}, nil
}

// Status reports whether name is currently held, without a token.
func (s *Shard) Status(ctx context.Context, name string) (LockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepLock(ctx, name); err != nil {
		return LockResult{}, err
	}

	var expiresAt int64
	err := s.db.GetContext(ctx, &expiresAt, `SELECT expires_at FROM lock WHERE name = ?`, name)
	if err == sql.ErrNoRows {
		return LockResult{Acquired: false, Name: name}, nil
	}
	if err != nil {
		return LockResult{}, fmt.Errorf("lock status: %w", err)
	}
	return LockResult{Acquired: true, Name: name, ExpiresAt: &expiresAt, HeldUntil: &expiresAt}, nil
}

// ListLocks returns every currently-held lock.
func (s *Shard) ListLocks(ctx context.Context) ([]LockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepAllLocks(ctx); err != nil {
		return nil, err
	}

	type row struct {
		Name      string `db:"name"`
		ExpiresAt int64  `db:"expires_at"`
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, expires_at FROM lock ORDER BY name`); err != nil {
		return nil, fmt.Errorf("lock list: %w", err)
	}

	out := make([]LockResult, 0, len(rows))
	for _, r := range rows {
		expiresAt := r.ExpiresAt
		out = append(out, LockResult{Acquired: true, Name: r.Name, ExpiresAt: &expiresAt, HeldUntil: &expiresAt})
	}
	return out, nil
}

func (s *Shard) sweepLock(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lock WHERE name = ? AND expires_at <= ?`, name, nowUnix())
	return err
}

func (s *Shard) sweepAllLocks(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lock WHERE expires_at <= ?`, nowUnix())
	return err
}

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := make([]byte, length)
	for i, b := range buf {
		token[i] = lockTokenAlphabet[int(b)%len(lockTokenAlphabet)]
	}
	return string(token), nil
}
