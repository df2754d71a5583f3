package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/safety"
	"github.com/stacks402/gateway/internal/shard"
)

// PasteHandlers implements the /storage/paste[/{id}] surface.
type PasteHandlers struct {
	shards  *shard.Manager
	scanner *safety.Scanner
}

// NewPasteHandlers builds the handler group.
func NewPasteHandlers(shards *shard.Manager, scanner *safety.Scanner) *PasteHandlers {
	return &PasteHandlers{shards: shards, scanner: scanner}
}

type pasteCreateRequest struct {
	Content    string  `json:"content" binding:"required"`
	Title      *string `json:"title"`
	Language   *string `json:"language"`
	TTLSeconds *int64  `json:"ttlSeconds"`
}

// Create handles POST /storage/paste.
func (h *PasteHandlers) Create(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	var req pasteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	var opts shard.PasteOptions
	opts.Title = req.Title
	opts.Language = req.Language
	if req.TTLSeconds != nil {
		ttl := time.Duration(*req.TTLSeconds) * time.Second
		opts.TTL = &ttl
	}

	id, err := sh.PasteCreate(c.Request.Context(), req.Content, opts)
	if err != nil {
		httpx.Error(c, 500, "paste create failed: "+err.Error())
		return
	}

	if h.scanner != nil {
		h.scanner.Schedule(safety.Job{
			Payer:       sh.Payer(),
			ContentID:   id,
			ContentType: shard.ContentPaste,
			Content:     req.Content,
		})
	}

	httpx.Created(c, gin.H{"id": id})
}

// Get handles GET /storage/paste/{id}.
func (h *PasteHandlers) Get(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	paste, err := sh.PasteGet(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, 500, "paste get failed: "+err.Error())
		return
	}
	if paste == nil {
		httpx.Error(c, 404, "no such paste")
		return
	}
	httpx.OK(c, paste)
}

// Delete handles DELETE /storage/paste/{id}.
func (h *PasteHandlers) Delete(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	removed, err := sh.PasteDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, 500, "paste delete failed: "+err.Error())
		return
	}
	if !removed {
		httpx.Error(c, 404, "no such paste")
		return
	}
	httpx.OK(c, gin.H{"deleted": true})
}
