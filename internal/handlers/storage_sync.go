package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/shard"
)

// SyncHandlers implements the /storage/sync/{lock|unlock|extend|status|list}
// distributed-lock surface.
type SyncHandlers struct {
	shards *shard.Manager
}

// NewSyncHandlers builds the handler group.
func NewSyncHandlers(shards *shard.Manager) *SyncHandlers {
	return &SyncHandlers{shards: shards}
}

type lockRequest struct {
	Name       string `json:"name" binding:"required"`
	TTLSeconds *int64 `json:"ttlSeconds"`
}

func ttlFromSeconds(seconds *int64) *time.Duration {
	if seconds == nil {
		return nil
	}
	ttl := time.Duration(*seconds) * time.Second
	return &ttl
}

// Lock handles POST /storage/sync/lock.
func (h *SyncHandlers) Lock(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	result, err := sh.Lock(c.Request.Context(), req.Name, ttlFromSeconds(req.TTLSeconds))
	if err != nil {
		httpx.Error(c, 500, "lock failed: "+err.Error())
		return
	}
	httpx.OK(c, result)
}

type unlockRequest struct {
	Name  string `json:"name" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// Unlock handles POST /storage/sync/unlock.
func (h *SyncHandlers) Unlock(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	released, err := sh.Unlock(c.Request.Context(), req.Name, req.Token)
	if err != nil {
		httpx.Error(c, 500, "unlock failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"released": released})
}

type extendRequest struct {
	Name       string `json:"name" binding:"required"`
	Token      string `json:"token" binding:"required"`
	TTLSeconds *int64 `json:"ttlSeconds"`
}

// Extend handles POST /storage/sync/extend.
func (h *SyncHandlers) Extend(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	result, err := sh.Extend(c.Request.Context(), req.Name, req.Token, ttlFromSeconds(req.TTLSeconds))
	if err != nil {
		httpx.Error(c, 500, "extend failed: "+err.Error())
		return
	}
	httpx.OK(c, result)
}

// Status handles GET /storage/sync/status/{name}.
func (h *SyncHandlers) Status(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	result, err := sh.Status(c.Request.Context(), c.Param("name"))
	if err != nil {
		httpx.Error(c, 500, "status failed: "+err.Error())
		return
	}
	httpx.OK(c, result)
}

// List handles GET /storage/sync/list.
func (h *SyncHandlers) List(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	results, err := sh.ListLocks(c.Request.Context())
	if err != nil {
		httpx.Error(c, 500, "list failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"locks": results})
}
