package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/payment"
	"github.com/stacks402/gateway/internal/shard"
)

// currentShard resolves the caller's shard from the settled payer bound to
// the request context. Every storage endpoint sits behind the payment
// middleware, so a missing payer here means the endpoint was reached
// without going through settlement — a wiring bug, not a client error —
// and the handler fails with 500 rather than silently using an empty-payer
// shard.
func currentShard(c *gin.Context, shards *shard.Manager) (*shard.Shard, bool) {
	payer := payment.Payer(c)
	if payer == "" {
		httpx.Error(c, 500, "storage endpoint reached without an authenticated payer")
		return nil, false
	}
	sh, err := shards.Get(c.Request.Context(), payer)
	if err != nil {
		httpx.Error(c, 500, "could not open payer shard: "+err.Error())
		return nil, false
	}
	return sh, true
}
