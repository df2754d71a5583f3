package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/shard"
)

// QueueHandlers implements the /storage/queue/{push|pop|peek|status|clear}
// surface.
type QueueHandlers struct {
	shards *shard.Manager
}

// NewQueueHandlers builds the handler group.
func NewQueueHandlers(shards *shard.Manager) *QueueHandlers {
	return &QueueHandlers{shards: shards}
}

type queuePushItem struct {
	JobID    string          `json:"jobId" binding:"required"`
	Payload  json.RawMessage `json:"payload"`
	Priority int             `json:"priority"`
}

type queuePushRequest struct {
	Queue    string          `json:"queue" binding:"required"`
	Items    []queuePushItem `json:"items" binding:"required"`
	Priority int             `json:"priority"`
}

// Push handles POST /storage/queue/push.
func (h *QueueHandlers) Push(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req queuePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	jobs := make([]shard.QueueJob, len(req.Items))
	for i, item := range req.Items {
		jobs[i] = shard.QueueJob{JobID: item.JobID, Payload: item.Payload, Priority: item.Priority}
	}

	if err := sh.QueuePush(c.Request.Context(), req.Queue, jobs, req.Priority); err != nil {
		httpx.Error(c, 500, "queue push failed: "+err.Error())
		return
	}
	httpx.Created(c, gin.H{"pushed": len(jobs)})
}

type queuePopRequest struct {
	Queue string `json:"queue" binding:"required"`
	Count int    `json:"count"`
}

// Pop handles POST /storage/queue/pop.
func (h *QueueHandlers) Pop(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req queuePopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	jobs, err := sh.QueuePop(c.Request.Context(), req.Queue, req.Count)
	if err != nil {
		httpx.Error(c, 500, "queue pop failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"jobs": jobs})
}

// Peek handles POST /storage/queue/peek.
func (h *QueueHandlers) Peek(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req queuePopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	jobs, err := sh.QueuePeek(c.Request.Context(), req.Queue, req.Count)
	if err != nil {
		httpx.Error(c, 500, "queue peek failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"jobs": jobs})
}

// Status handles GET /storage/queue/status.
func (h *QueueHandlers) Status(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	queue := c.Query("queue")
	if queue == "" {
		httpx.BadRequest(c, "queue is required")
		return
	}
	status, err := sh.QueueStatusOf(c.Request.Context(), queue)
	if err != nil {
		httpx.Error(c, 500, "queue status failed: "+err.Error())
		return
	}
	httpx.OK(c, status)
}

type queueClearRequest struct {
	Queue  string `json:"queue" binding:"required"`
	Status string `json:"status"`
}

// Clear handles POST /storage/queue/clear.
func (h *QueueHandlers) Clear(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}
	var req queueClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := sh.QueueClear(c.Request.Context(), req.Queue, req.Status); err != nil {
		httpx.Error(c, 500, "queue clear failed: "+err.Error())
		return
	}
	httpx.OK(c, gin.H{"cleared": true})
}
