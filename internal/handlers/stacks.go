package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/adapters"
	"github.com/stacks402/gateway/internal/httpx"
)

// StacksHandlers builds the thin-wrapper blockchain lookup endpoints over a
// BlockchainProvider. Every handler here does no interpretation of the
// upstream response; it validates the request shape and passes the raw
// result through.
type StacksHandlers struct {
	provider *adapters.BlockchainProvider
}

// NewStacksHandlers builds the handler group over provider.
func NewStacksHandlers(provider *adapters.BlockchainProvider) *StacksHandlers {
	return &StacksHandlers{provider: provider}
}

// Address handles GET /stacks/address/{address}.
func (h *StacksHandlers) Address(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		httpx.BadRequest(c, "address is required")
		return
	}
	raw, err := h.provider.Address(c.Request.Context(), address)
	if err != nil {
		httpx.Error(c, 502, "blockchain lookup failed: "+err.Error())
		return
	}
	c.Data(200, "application/json", raw)
}

// Profile handles GET /stacks/profile/{address}.
func (h *StacksHandlers) Profile(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		httpx.BadRequest(c, "address is required")
		return
	}
	raw, err := h.provider.Profile(c.Request.Context(), address)
	if err != nil {
		httpx.Error(c, 502, "blockchain lookup failed: "+err.Error())
		return
	}
	c.Data(200, "application/json", raw)
}

type decodeRequest struct {
	Hex string `json:"hex" binding:"required"`
}

// DecodeClarity handles POST /stacks/decode/clarity.
func (h *StacksHandlers) DecodeClarity(c *gin.Context) {
	var req decodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	raw, err := h.provider.DecodeClarity(c.Request.Context(), req.Hex)
	if err != nil {
		httpx.Error(c, 502, "blockchain lookup failed: "+err.Error())
		return
	}
	c.Data(200, "application/json", raw)
}

// DecodeTransaction handles POST /stacks/decode/transaction.
func (h *StacksHandlers) DecodeTransaction(c *gin.Context) {
	var req decodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	raw, err := h.provider.DecodeTransaction(c.Request.Context(), req.Hex)
	if err != nil {
		httpx.Error(c, 502, "blockchain lookup failed: "+err.Error())
		return
	}
	c.Data(200, "application/json", raw)
}

type verifyMessageRequest struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	PublicKey string `json:"publicKey" binding:"required"`
}

// VerifyMessage handles POST /stacks/verify/message.
func (h *StacksHandlers) VerifyMessage(c *gin.Context) {
	var req verifyMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	raw, err := h.provider.VerifyMessage(c.Request.Context(), req.Message, req.Signature, req.PublicKey)
	if err != nil {
		httpx.Error(c, 502, "blockchain lookup failed: "+err.Error())
		return
	}
	c.Data(200, "application/json", raw)
}

type verifySIP018Request struct {
	Domain    map[string]interface{} `json:"domain" binding:"required"`
	Payload   map[string]interface{} `json:"payload" binding:"required"`
	Signature string                  `json:"signature" binding:"required"`
	PublicKey string                  `json:"publicKey" binding:"required"`
}

// VerifySIP018 handles POST /stacks/verify/sip018.
func (h *StacksHandlers) VerifySIP018(c *gin.Context) {
	var req verifySIP018Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	domain, err := marshalJSON(req.Domain)
	if err != nil {
		httpx.BadRequest(c, "invalid domain: "+err.Error())
		return
	}
	payload, err := marshalJSON(req.Payload)
	if err != nil {
		httpx.BadRequest(c, "invalid payload: "+err.Error())
		return
	}

	raw, err := h.provider.VerifySIP018(c.Request.Context(), domain, payload, req.Signature, req.PublicKey)
	if err != nil {
		httpx.Error(c, 502, "blockchain lookup failed: "+err.Error())
		return
	}
	c.Data(200, "application/json", raw)
}
