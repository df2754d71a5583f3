// Package modelcache implements the process-global, TTL-bounded,
// single-flight model price cache that sits in front of whatever inference
// provider the dynamic pricing tier is estimating for.
package modelcache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/stacks402/gateway/internal/pricing"
)

const (
	// TTL is how long a successful snapshot is trusted before a refresh is
	// attempted again.
	TTL = time.Hour
	// RetryBackoff suppresses refresh attempts for this long after a
	// failure, so a flapping upstream doesn't get hammered on every lookup.
	RetryBackoff = 30 * time.Second
	// RefreshTimeout bounds a single refresh attempt.
	RefreshTimeout = 3 * time.Second
)

// Provider fetches the current model price list from an upstream inference
// provider. Implementations live in the adapters package.
type Provider interface {
	FetchModels(ctx context.Context) (map[string]pricing.ModelPricing, error)
}

// Cache is the process-global opportunistic model price snapshot. The zero
// value is not usable; construct with New.
type Cache struct {
	provider Provider
	logger   *zap.Logger

	mu          sync.RWMutex
	snapshot    map[string]pricing.ModelPricing
	lastSuccess time.Time
	lastFailure time.Time

	group singleflight.Group
}

// New builds a Cache backed by the given upstream provider.
func New(provider Provider, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{provider: provider, logger: logger}
}

// Lookup implements pricing.Catalog. It opportunistically triggers a
// refresh (subject to TTL and backoff) before answering, so the very first
// caller after a cold start pays the refresh latency instead of getting a
// pessimistic "fall back" answer for no reason.
func (c *Cache) Lookup(model string) pricing.LookupResult {
	c.maybeRefresh(context.Background())

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		// Cache empty or every refresh so far has failed: caller must fall
		// back to its own compiled-in table.
		return pricing.LookupResult{Valid: true, Pricing: nil}
	}
	if p, ok := c.snapshot[model]; ok {
		pCopy := p
		return pricing.LookupResult{Valid: true, Pricing: &pCopy}
	}
	return pricing.LookupResult{Valid: false, Reason: fmt.Sprintf("model %q is not in the catalog", model)}
}

// maybeRefresh triggers a refresh when the snapshot is empty or stale,
// unless a recent failure has put refreshing into backoff. Concurrent
// callers share one in-flight refresh via singleflight.
func (c *Cache) maybeRefresh(ctx context.Context) {
	c.mu.RLock()
	empty := c.snapshot == nil
	stale := time.Since(c.lastSuccess) > TTL
	inBackoff := !c.lastFailure.IsZero() && time.Since(c.lastFailure) < RetryBackoff
	c.mu.RUnlock()

	if !empty && !stale {
		return
	}
	if inBackoff {
		return
	}

	_, _, _ = c.group.Do("refresh", func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(ctx, RefreshTimeout)
		defer cancel()

		models, err := c.provider.FetchModels(refreshCtx)
		if err != nil {
			c.mu.Lock()
			c.lastFailure = time.Now()
			c.mu.Unlock()
			c.logger.Warn("model catalog refresh failed", zap.Error(err))
			return nil, err
		}

		cleaned := sanitize(models)
		c.mu.Lock()
		c.snapshot = cleaned
		c.lastSuccess = time.Now()
		c.mu.Unlock()
		return nil, nil
	})
}

// sanitize drops entries with non-finite or negative per-k prices, per the
// cache-load-time error policy in the pricing engine spec.
func sanitize(models map[string]pricing.ModelPricing) map[string]pricing.ModelPricing {
	cleaned := make(map[string]pricing.ModelPricing, len(models))
	for model, p := range models {
		if !validPrice(p.PromptPerK) || !validPrice(p.CompletionPerK) {
			continue
		}
		cleaned[model] = p
	}
	return cleaned
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Snapshot returns a copy of the current cached prices, for diagnostics and
// tests. A nil map means the cache is currently empty.
func (c *Cache) Snapshot() map[string]pricing.ModelPricing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil
	}
	out := make(map[string]pricing.ModelPricing, len(c.snapshot))
	for k, v := range c.snapshot {
		out[k] = v
	}
	return out
}
