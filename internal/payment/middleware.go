// Package payment implements the x402 payment state machine: the gateway
// middleware that turns a request into a 402 challenge, decodes a client's
// signed payload, settles it through the external relay, classifies
// failure, and binds payer identity for the handler that follows.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stacks402/gateway/internal/facilitator"
	"github.com/stacks402/gateway/internal/pricing"
	"github.com/stacks402/gateway/internal/protocol"
)

const (
	fixedTierTimeoutSeconds   = 60
	dynamicTierTimeoutSeconds = 120

	headerPaymentRequired = "payment-required"
	headerPaymentResponse = "payment-response"
	headerPayerAddress    = "payer-address"
	headerTokenType       = "payment-token-type"
	headerSignature       = "payment-signature"
	headerSignatureLegacy = "X-PAYMENT"
	headerResponseLegacy  = "X-PAYMENT-RESPONSE"
	queryTokenType        = "tokenType"
)

// Route describes everything the payment middleware needs to know about the
// endpoint it is guarding: how to price it, and what to advertise about it
// in the 402 challenge's discovery extension.
type Route struct {
	Tier           protocol.PriceTier
	Resource       string
	Description    string
	Category       string
	DiscoveryExtra map[string]interface{}
}

// AuditEntry is one completed request's audit record, handed to an
// AuditSink after the response outcome is known.
type AuditEntry struct {
	CorrelationID string
	Payer         string
	Category      string
	Status        int
	Message       string
}

// Recorder receives usage telemetry for settled and failed requests. The
// concrete implementation is the process-global metrics.Recorder; this
// package only depends on the shape it needs, matching how Facilitator and
// PricingEngine are already narrow collaborators rather than the whole
// process wiring.
type Recorder interface {
	RecordRequest(category, outcome, token, tier, amountAtomic, payer string, status int)
	ObserveSettlementDuration(d time.Duration)
}

// AuditSink receives an async structured record of a completed request,
// independent of the process-local Recorder above.
type AuditSink interface {
	Submit(entry AuditEntry)
}

// Config wires the middleware to its collaborators.
type Config struct {
	Network       protocol.NetworkIdentity
	Facilitator   *facilitator.Client
	PricingEngine *pricing.Engine
	Logger        *zap.Logger
	Recorder      Recorder
	AuditSink     AuditSink
}

// Middleware builds gin handlers that implement the payment state machine
// for a given Route.
type Middleware struct {
	cfg Config
}

// New builds a Middleware from Config.
func New(cfg Config) *Middleware {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Middleware{cfg: cfg}
}

// Wrap returns a gin handler implementing the payment state machine for
// route, calling next once payment has settled (or immediately, for a free
// tier).
func (m *Middleware) Wrap(route Route, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if route.Tier.Kind == protocol.TierFree {
			next(c)
			return
		}

		logger := Logger(c)

		token, err := selectToken(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, token, err.Error())
			return
		}

		estimate, parsedBody, err := m.derivePrice(c, route.Tier, token)
		if err != nil {
			if _, ok := err.(*protocol.InvalidRequestError); ok {
				respondError(c, http.StatusBadRequest, token, err.Error())
				return
			}
			respondError(c, http.StatusInternalServerError, token, err.Error())
			return
		}
		if parsedBody != nil {
			c.Set(keyParsedBody, parsedBody)
		}
		c.Set(keyEstimate, estimate)
		c.Set(keyToken, token)

		challenge, err := m.buildChallenge(route, parsedBody)
		if err != nil {
			respondError(c, http.StatusInternalServerError, token, err.Error())
			return
		}

		paymentHeader := firstNonEmpty(c.GetHeader(headerSignature), c.GetHeader(headerSignatureLegacy))
		if paymentHeader == "" {
			m.emitChallenge(c, token, challenge)
			return
		}

		payload, err := protocol.DecodePaymentPayloadFromBase64(paymentHeader)
		if err != nil {
			respondError(c, http.StatusBadRequest, token, fmt.Sprintf("invalid payment payload: %v", err))
			return
		}

		requirement, ok := requirementForToken(challenge, token)
		if !ok {
			respondError(c, http.StatusBadRequest, token, "invalid payment payload: no requirement for chosen token")
			return
		}
		payload.Accepted = requirement

		// Settlement is deliberately detached from the request context: a
		// client disconnect must not cancel an in-flight settle. The transfer
		// may still land on chain, so aborting verification locally would
		// record a spurious failure for a payment that actually succeeded.
		// The facilitator client's own timeout (set at construction) still
		// bounds the call.
		settleStart := time.Now()
		result, err := m.cfg.Facilitator.Settle(context.Background(), payload, requirement)
		if m.cfg.Recorder != nil {
			m.cfg.Recorder.ObserveSettlementDuration(time.Since(settleStart))
		}
		if err != nil {
			m.failSettlement(c, route, token, estimate, err.Error())
			return
		}
		if !result.Success {
			m.failSettlement(c, route, token, estimate, result.ErrorReason)
			return
		}

		logger.Info("payment settled",
			zap.String("payer", result.Payer),
			zap.String("transaction", result.Transaction),
			zap.String("token", string(token)),
			zap.String("amount", estimate.Amount.String()),
		)

		c.Set(keyPayer, result.Payer)
		c.Set(keySettlement, *result)

		receiptHeader, err := result.EncodeToBase64()
		if err != nil {
			respondError(c, http.StatusInternalServerError, token, "failed to encode settlement receipt")
			return
		}
		// Receipt headers are attached before the handler runs: payment has
		// already settled on-chain, so the client must see that even if the
		// handler itself goes on to fail.
		c.Header(headerPaymentResponse, receiptHeader)
		c.Header(headerResponseLegacy, receiptHeader)
		c.Header(headerPayerAddress, result.Payer)

		next(c)

		status := c.Writer.Status()
		outcome := "success"
		if status >= http.StatusBadRequest {
			outcome = "handler_error"
		}
		if m.cfg.Recorder != nil {
			m.cfg.Recorder.RecordRequest(route.Category, outcome, string(token), string(route.Tier.Kind), estimate.Amount.String(), result.Payer, status)
		}
		if m.cfg.AuditSink != nil {
			m.cfg.AuditSink.Submit(AuditEntry{
				CorrelationID: c.Writer.Header().Get("X-Correlation-ID"),
				Payer:         result.Payer,
				Category:      route.Category,
				Status:        status,
				Message:       "request settled and handled",
			})
		}
	}
}

// failSettlement classifies a settlement failure (either a transport-level
// error or the relay's own ErrorReason) and writes the corresponding HTTP
// response.
func (m *Middleware) failSettlement(c *gin.Context, route Route, token protocol.TokenKind, estimate protocol.PriceEstimate, message string) {
	classification := protocol.Classify(message)
	if classification.RetryAfter > 0 {
		c.Header("Retry-After", fmt.Sprintf("%d", classification.RetryAfter))
	}
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.RecordRequest(route.Category, "settlement_failed", string(token), string(route.Tier.Kind), estimate.Amount.String(), "", classification.Status)
	}
	if m.cfg.AuditSink != nil {
		m.cfg.AuditSink.Submit(AuditEntry{
			CorrelationID: c.Writer.Header().Get("X-Correlation-ID"),
			Category:      route.Category,
			Status:        classification.Status,
			Message:       "settlement failed: " + message,
		})
	}
	respondErrorExtra(c, classification.Status, token, message, map[string]interface{}{
		"taxonomy": classification.Kind,
	})
}

// derivePrice runs DERIVE_PRICE: standard tiers are priced once per token
// via the pricing engine, and dynamic tiers parse the request body exactly
// once, here, so the handler never re-reads it.
func (m *Middleware) derivePrice(c *gin.Context, tier protocol.PriceTier, token protocol.TokenKind) (protocol.PriceEstimate, *protocol.ChatPricingRequest, error) {
	switch tier.Kind {
	case protocol.TierStandard:
		estimate, err := pricing.FixedTierEstimate(tier, token)
		return estimate, nil, err
	case protocol.TierDynamic:
		var body protocol.ChatPricingRequest
		if err := c.ShouldBindBodyWith(&body, chatBinding{}); err != nil {
			return protocol.PriceEstimate{}, nil, protocol.NewInvalidRequest(fmt.Sprintf("malformed request body: %v", err))
		}
		estimate, err := tier.Estimator(body, token)
		if err != nil {
			return protocol.PriceEstimate{}, nil, err
		}
		return estimate, &body, nil
	default:
		return protocol.PriceEstimate{}, nil, fmt.Errorf("unrecognized price tier %q", tier.Kind)
	}
}

// buildChallenge produces the PaymentRequired for route, with one
// PaymentRequirement per token supported on the configured network. Every
// token is priced independently using the same parsed body (nil for fixed
// tiers), since the atomic amount differs by token even when the USD figure
// behind a dynamic estimate doesn't.
func (m *Middleware) buildChallenge(route Route, parsedBody *protocol.ChatPricingRequest) (protocol.PaymentRequired, error) {
	timeout := fixedTierTimeoutSeconds
	if route.Tier.Kind == protocol.TierDynamic {
		timeout = dynamicTierTimeoutSeconds
	}

	var accepts []protocol.PaymentRequirement
	for _, token := range protocol.SupportedTokens(m.cfg.Network.Kind) {
		var (
			estimate protocol.PriceEstimate
			err      error
		)
		switch route.Tier.Kind {
		case protocol.TierStandard:
			estimate, err = pricing.FixedTierEstimate(route.Tier, token)
		case protocol.TierDynamic:
			body := protocol.ChatPricingRequest{}
			if parsedBody != nil {
				body = *parsedBody
			}
			estimate, err = route.Tier.Estimator(body, token)
		}
		if err != nil {
			return protocol.PaymentRequired{}, err
		}

		extra := map[string]interface{}{"tier": string(route.Tier.Kind)}
		if estimate.ModelID != "" {
			extra["model"] = estimate.ModelID
		}
		if estimate.EstimatedInputTokens != nil {
			extra["estimatedInputTokens"] = *estimate.EstimatedInputTokens
		}
		if estimate.EstimatedOutputTokens != nil {
			extra["estimatedOutputTokens"] = *estimate.EstimatedOutputTokens
		}
		for k, v := range route.DiscoveryExtra {
			extra[k] = v
		}

		accepts = append(accepts, protocol.PaymentRequirement{
			Scheme:            "exact",
			Network:           m.cfg.Network.ChainIdentifier(),
			Amount:            estimate.Amount.String(),
			Asset:             protocol.AssetDesignation(token, m.cfg.Network.Kind),
			PayTo:             m.cfg.Network.Recipient,
			MaxTimeoutSeconds: timeout,
			Extra:             extra,
			Token:             token,
		})
	}

	return protocol.PaymentRequired{
		X402Version: protocol.CurrentVersion,
		Resource:    protocol.ResourceInfo{URL: route.Resource, Description: route.Description},
		Accepts:     accepts,
	}, nil
}

func (m *Middleware) emitChallenge(c *gin.Context, token protocol.TokenKind, challenge protocol.PaymentRequired) {
	encoded, err := challenge.EncodeToBase64()
	if err != nil {
		respondError(c, http.StatusInternalServerError, token, "failed to encode payment challenge")
		return
	}
	c.Header(headerPaymentRequired, encoded)
	c.JSON(http.StatusPaymentRequired, challenge)
	c.Abort()
}

func requirementForToken(challenge protocol.PaymentRequired, token protocol.TokenKind) (protocol.PaymentRequirement, bool) {
	for _, req := range challenge.Accepts {
		if req.Token == token {
			return req, true
		}
	}
	return protocol.PaymentRequirement{}, false
}

func selectToken(c *gin.Context) (protocol.TokenKind, error) {
	raw := c.GetHeader(headerTokenType)
	if raw == "" {
		raw = c.Query(queryTokenType)
	}
	if raw == "" {
		return protocol.Native, nil
	}
	token := protocol.TokenKind(raw)
	if _, ok := protocol.LookupToken(token); !ok {
		return "", fmt.Errorf("unknown payment-token-type %q", raw)
	}
	return token, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func respondError(c *gin.Context, status int, token protocol.TokenKind, message string) {
	respondErrorExtra(c, status, token, message, nil)
}

func respondErrorExtra(c *gin.Context, status int, token protocol.TokenKind, message string, extra map[string]interface{}) {
	body := gin.H{"ok": false, "tokenType": string(token), "error": message}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

// BindChatRequest parses a chat completion request body using the same wire
// format the dynamic-tier pricing step uses. Standard-tier chat endpoints
// never go through derivePrice, so ParsedBody is always nil for them; their
// handler calls this directly instead of duplicating the wire decode.
func BindChatRequest(c *gin.Context) (*protocol.ChatPricingRequest, error) {
	var body protocol.ChatPricingRequest
	if err := c.ShouldBindBodyWith(&body, chatBinding{}); err != nil {
		return nil, fmt.Errorf("malformed chat request body: %w", err)
	}
	return &body, nil
}

// chatBinding lets the middleware parse a chat request body exactly once
// via gin's ShouldBindBodyWith, which caches the raw body bytes so a later
// re-bind (e.g. in the handler itself) never re-reads the stream.
type chatBinding struct{}

func (chatBinding) Name() string { return "chatPricingRequest" }

func (chatBinding) Bind(req *http.Request, obj interface{}) error {
	target, ok := obj.(*protocol.ChatPricingRequest)
	if !ok {
		return fmt.Errorf("unexpected bind target %T", obj)
	}
	var wire struct {
		Model     string `json:"model"`
		MaxTokens *int   `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(req.Body).Decode(&wire); err != nil {
		return err
	}
	target.Model = wire.Model
	target.MaxTokens = wire.MaxTokens
	target.Messages = nil
	for _, msg := range wire.Messages {
		target.Messages = append(target.Messages, protocol.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return nil
}

func (chatBinding) BindBody(body []byte, obj interface{}) error {
	target, ok := obj.(*protocol.ChatPricingRequest)
	if !ok {
		return fmt.Errorf("unexpected bind target %T", obj)
	}
	var wire struct {
		Model     string `json:"model"`
		MaxTokens *int   `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return err
	}
	target.Model = wire.Model
	target.MaxTokens = wire.MaxTokens
	target.Messages = nil
	for _, msg := range wire.Messages {
		target.Messages = append(target.Messages, protocol.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return nil
}
