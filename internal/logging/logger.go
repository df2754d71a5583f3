// Package logging builds the gateway's structured logger and the gin
// middleware that attaches a per-request, correlation-id-scoped child of it
// to the request context.
package logging

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stacks402/gateway/internal/payment"
)

const headerCorrelationID = "X-Correlation-ID"

// New builds the process-wide base logger: JSON in production, a more
// readable console encoder otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// CorrelationMiddleware stamps every request with a correlation id (reusing
// an inbound one if present) and binds a child logger carrying it, a
// request id, and the route, so every log line downstream is traceable back
// to one request without callers having to pass fields by hand.
func CorrelationMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(headerCorrelationID)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Header(headerCorrelationID, correlationID)

		requestLogger := base.With(
			zap.String("correlationId", correlationID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
		payment.SetLogger(c, requestLogger)

		start := time.Now()
		c.Next()
		requestLogger.Info("request completed",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// RecoveryMiddleware installs the dispatcher's top-level panic recovery: a
// panicking handler produces a 500 with the request's correlation id
// instead of tearing down the process, and the stack is logged for
// diagnosis.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				payment.Logger(c).Error("panic recovered in handler",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"ok":            false,
					"error":         "internal server error",
					"correlationId": c.Writer.Header().Get(headerCorrelationID),
				})
			}
		}()
		c.Next()
	}
}
