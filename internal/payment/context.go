package payment

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stacks402/gateway/internal/protocol"
)

// Context keys the payment middleware binds into the gin context for
// handlers and shared helpers to read.
const (
	keyPayer       = "x402.payer"
	keyToken       = "x402.token"
	keyEstimate    = "x402.estimate"
	keyParsedBody  = "x402.parsedBody"
	keyLogger      = "x402.logger"
	keySettlement  = "x402.settlement"
)

// Payer returns the authoritative payer address bound by a successful
// settlement. Only meaningful for priced routes past the middleware.
func Payer(c *gin.Context) string {
	v, _ := c.Get(keyPayer)
	s, _ := v.(string)
	return s
}

// Token returns the settlement token the request was priced and paid in.
func Token(c *gin.Context) protocol.TokenKind {
	v, _ := c.Get(keyToken)
	t, _ := v.(protocol.TokenKind)
	return t
}

// Estimate returns the PriceEstimate the middleware derived for this
// request.
func Estimate(c *gin.Context) protocol.PriceEstimate {
	v, _ := c.Get(keyEstimate)
	e, _ := v.(protocol.PriceEstimate)
	return e
}

// ParsedBody returns the request body the middleware parsed once while
// deriving a dynamic price, so the handler never has to read the request
// body a second time. Returns nil if the route is not dynamically priced.
func ParsedBody(c *gin.Context) *protocol.ChatPricingRequest {
	v, _ := c.Get(keyParsedBody)
	body, _ := v.(*protocol.ChatPricingRequest)
	return body
}

// SetParsedBody binds a pre-parsed dynamic-tier request body to the
// context. Production code only calls this from the middleware itself,
// while deriving a dynamic price estimate; it is exported so handler tests
// can simulate a request past that parse without going through pricing.
func SetParsedBody(c *gin.Context, body *protocol.ChatPricingRequest) {
	c.Set(keyParsedBody, body)
}

// SetPayer binds the settled payer address to the context. Production code
// only calls this from the middleware itself, after settlement succeeds;
// it is exported so handler tests can simulate a request past settlement
// without standing up a real facilitator.
func SetPayer(c *gin.Context, payer string) {
	c.Set(keyPayer, payer)
}

// SetLogger binds the request-scoped logger, normally called once by the
// correlation-id middleware before any handler runs.
func SetLogger(c *gin.Context, logger *zap.Logger) {
	c.Set(keyLogger, logger)
}

// Logger returns the request-scoped logger bound to the correlation id.
func Logger(c *gin.Context) *zap.Logger {
	v, ok := c.Get(keyLogger)
	if !ok {
		return zap.NewNop()
	}
	logger, ok := v.(*zap.Logger)
	if !ok || logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Settlement returns the settlement result bound to the request context.
func Settlement(c *gin.Context) protocol.SettlementResult {
	v, _ := c.Get(keySettlement)
	s, _ := v.(protocol.SettlementResult)
	return s
}
