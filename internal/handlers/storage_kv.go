package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/safety"
	"github.com/stacks402/gateway/internal/shard"
)

// KVHandlers implements the /storage/kv[/{key}] surface.
type KVHandlers struct {
	shards  *shard.Manager
	scanner *safety.Scanner
}

// NewKVHandlers builds the handler group. scanner may be nil, in which case
// no content-safety scan is scheduled for written values.
func NewKVHandlers(shards *shard.Manager, scanner *safety.Scanner) *KVHandlers {
	return &KVHandlers{shards: shards, scanner: scanner}
}

type kvSetRequest struct {
	Key        string  `json:"key" binding:"required"`
	Value      string  `json:"value" binding:"required"`
	Metadata   *string `json:"metadata"`
	TTLSeconds *int64  `json:"ttlSeconds"`
}

// Set handles POST /storage/kv.
func (h *KVHandlers) Set(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	var req kvSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	var opts shard.SetOptions
	opts.Metadata = req.Metadata
	if req.TTLSeconds != nil {
		ttl := time.Duration(*req.TTLSeconds) * time.Second
		opts.TTL = &ttl
	}

	created, err := sh.KVSet(c.Request.Context(), req.Key, req.Value, opts)
	if err != nil {
		httpx.Error(c, 500, "kv set failed: "+err.Error())
		return
	}

	if h.scanner != nil {
		h.scanner.Schedule(safety.Job{
			Payer:       sh.Payer(),
			ContentID:   req.Key,
			ContentType: shard.ContentKV,
			Content:     req.Value,
		})
	}

	httpx.OK(c, gin.H{"created": created, "key": req.Key})
}

// Get handles GET /storage/kv/{key}.
func (h *KVHandlers) Get(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	entry, err := sh.KVGet(c.Request.Context(), c.Param("key"))
	if err != nil {
		httpx.Error(c, 500, "kv get failed: "+err.Error())
		return
	}
	if entry == nil {
		httpx.Error(c, 404, "no such key")
		return
	}
	httpx.OK(c, entry)
}

// Delete handles DELETE /storage/kv/{key}.
func (h *KVHandlers) Delete(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	removed, err := sh.KVDelete(c.Request.Context(), c.Param("key"))
	if err != nil {
		httpx.Error(c, 500, "kv delete failed: "+err.Error())
		return
	}
	if !removed {
		httpx.Error(c, 404, "no such key")
		return
	}
	httpx.OK(c, gin.H{"deleted": true})
}

// List handles GET /storage/kv.
func (h *KVHandlers) List(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := sh.KVList(c.Request.Context(), c.Query("prefix"), limit)
	if err != nil {
		httpx.Error(c, 500, "kv list failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"entries": entries})
}
