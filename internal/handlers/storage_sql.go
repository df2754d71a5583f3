package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/shard"
)

// SQLHandlers implements the /storage/db/{query|execute|schema} surface.
type SQLHandlers struct {
	shards *shard.Manager
}

// NewSQLHandlers builds the handler group.
func NewSQLHandlers(shards *shard.Manager) *SQLHandlers {
	return &SQLHandlers{shards: shards}
}

type sqlQueryRequest struct {
	Query  string        `json:"query" binding:"required"`
	Params []interface{} `json:"params"`
}

// Query handles POST /storage/db/query.
func (h *SQLHandlers) Query(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	var req sqlQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := sh.SandboxQuery(c.Request.Context(), req.Query, req.Params)
	if err != nil {
		httpx.BadRequest(c, err.Error())
		return
	}
	httpx.OK(c, result)
}

type sqlExecuteRequest struct {
	Statement string        `json:"statement" binding:"required"`
	Params    []interface{} `json:"params"`
}

// Execute handles POST /storage/db/execute.
func (h *SQLHandlers) Execute(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	var req sqlExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	affected, err := sh.SandboxExecute(c.Request.Context(), req.Statement, req.Params)
	if err != nil {
		httpx.BadRequest(c, err.Error())
		return
	}
	httpx.OK(c, gin.H{"rowsAffected": affected})
}

// Schema handles GET /storage/db/schema.
func (h *SQLHandlers) Schema(c *gin.Context) {
	sh, ok := currentShard(c, h.shards)
	if !ok {
		return
	}

	result, err := sh.SandboxSchema(c.Request.Context())
	if err != nil {
		httpx.Error(c, 500, "schema introspection failed: "+err.Error())
		return
	}
	httpx.OK(c, result)
}
