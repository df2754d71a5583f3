package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/safety"
	"github.com/stacks402/gateway/internal/shard"
)

// MemoryHandlers implements the /storage/memory/{store|search|delete|list|clear}
// vector-memory surface.
type MemoryHandlers struct {
	shards  *shard.Manager
	scanner *safety.Scanner
}

// NewMemoryHandlers builds the handler group.
func NewMemoryHandlers(shards *shard.Manager, scanner *safety.Scanner) *MemoryHandlers {
	return &MemoryHandlers{shards: shards, scanner: scanner}
}

type memoryItemRequest struct {
	ID        string          `json:"id" binding:"required"`
	Text      string          `json:"text" binding:"required"`
	Embedding []float64       `json:"embedding" binding:"required"`
	Metadata  json.RawMessage `json:"metadata"`
}

type memoryStoreRequest struct {
	Items []memoryItemRequest `json:"items" binding:"required"`
}

// Store handles POST /storage/memory/store.
func (h *MemoryHandlers) Store(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req memoryStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	items := make([]shard.MemoryItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = shard.MemoryItem{ID: item.ID, Text: item.Text, Embedding: item.Embedding, Metadata: item.Metadata}
	}

	if err := sh.MemoryStore(c.Request.Context(), items); err != nil {
		httpx.BadRequest(c, err.Error())
		return
	}

	if h.scanner != nil {
		for _, item := range req.Items {
			h.scanner.Schedule(safety.Job{
				Payer:       sh.Payer(),
				ContentID:   item.ID,
				ContentType: shard.ContentMemory,
				Content:     item.Text,
			})
		}
	}

	httpx.Created(c, gin.H{"stored": len(items)})
}

type memorySearchRequest struct {
	Embedding []float64 `json:"embedding" binding:"required"`
	Limit     int       `json:"limit"`
	Threshold float64   `json:"threshold"`
}

// Search handles POST /storage/memory/search.
func (h *MemoryHandlers) Search(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req memorySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	results, err := sh.MemorySearch(c.Request.Context(), req.Embedding, req.Limit, req.Threshold)
	if err != nil {
		httpx.Error(c, 500, "memory search failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"results": results})
}

type memoryDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Delete handles POST /storage/memory/delete.
func (h *MemoryHandlers) Delete(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req memoryDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	deleted, err := sh.MemoryDelete(c.Request.Context(), req.IDs)
	if err != nil {
		httpx.Error(c, 500, "memory delete failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"deleted": deleted})
}

// List handles GET /storage/memory/list.
func (h *MemoryHandlers) List(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	items, err := sh.MemoryList(c.Request.Context(), limit, offset)
	if err != nil {
		httpx.Error(c, 500, "memory list failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"items": items})
}

// Clear handles POST /storage/memory/clear.
func (h *MemoryHandlers) Clear(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	if err := sh.MemoryClear(c.Request.Context()); err != nil {
		httpx.Error(c, 500, "memory clear failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"cleared": true})
}
