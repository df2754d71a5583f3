// Package shard implements the payer shard storage core: one isolated
// embedded SQL database per payer address, exposing key-value, paste, SQL
// sandbox, distributed lock, priority queue, vector-memory, and
// content-scan subsystems. Every shard is a single-owner actor — all
// operations on one shard are serialized by a per-shard mutex, mirroring
// "one exclusive SQL engine per payer" from the storage design.
package shard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var payerPathSafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Manager owns the full set of open shards and lazily creates one per payer
// address on first use.
type Manager struct {
	dataDir string

	mu     sync.Mutex
	shards map[string]*Shard
}

// NewManager builds a Manager rooted at dataDir, creating the directory if
// it doesn't already exist.
func NewManager(dataDir string) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create shard data dir: %w", err)
	}
	return &Manager{dataDir: dataDir, shards: make(map[string]*Shard)}, nil
}

// Get returns the shard for payer, opening and initializing it under an
// exclusive guard on first use. No caller ever observes a shard with a
// partially-created schema: the manager's lock covers open-and-migrate as
// one step per payer.
func (m *Manager) Get(ctx context.Context, payer string) (*Shard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.shards[payer]; ok {
		return s, nil
	}

	path := filepath.Join(m.dataDir, payerPathSafe.ReplaceAllString(payer, "_")+".db")
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open shard for payer %q: %w", payer, err)
	}
	db.SetMaxOpenConns(1) // one exclusive engine per payer; avoids sqlite writer contention

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate shard for payer %q: %w", payer, err)
	}

	shard := &Shard{payer: payer, db: db}
	m.shards[payer] = shard
	return shard, nil
}

// Close closes every open shard. Intended for graceful shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for payer, s := range m.shards {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close shard for payer %q: %w", payer, err)
		}
	}
	m.shards = make(map[string]*Shard)
	return firstErr
}

// Shard is one payer's isolated persistent actor. Every exported method
// takes the shard's mutex, so callers never need their own locking.
type Shard struct {
	payer string
	mu    sync.Mutex
	db    *sqlx.DB
}

// Payer returns the address this shard belongs to.
func (s *Shard) Payer() string { return s.payer }
