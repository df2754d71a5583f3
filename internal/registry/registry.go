// Package registry is the gateway's declarative endpoint table: one entry
// per HTTP route, naming its price tier, handler, and discovery metadata.
// The dispatcher walks the table once at startup to wire gin routes, and
// the discovery package walks it again to render x402.json.
package registry

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/payment"
	"github.com/stacks402/gateway/internal/protocol"
)

// Endpoint is one row of the declarative route table.
type Endpoint struct {
	Method      string
	Path        string
	Tier        protocol.PriceTier
	Description string
	Category    string
	Handler     gin.HandlerFunc

	// DiscoveryExtra is merged into every PaymentRequirement's Extra field
	// advertised for this endpoint.
	DiscoveryExtra map[string]interface{}
}

// Registry owns the full endpoint table and can dispatch it onto a gin
// engine behind a shared payment middleware.
type Registry struct {
	endpoints []Endpoint
	seen      map[string]bool
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{seen: make(map[string]bool)}
}

// Register appends an endpoint to the table. Order is preserved, and is the
// order routes are wired and the order they appear in the discovery
// manifest. Registering the same (method, path) twice is a build-time wiring
// bug, not something Dispatch should discover later via gin's own panic, so
// it fails fast here.
func (r *Registry) Register(endpoint Endpoint) {
	key := endpoint.Method + " " + endpoint.Path
	if r.seen[key] {
		panic(fmt.Sprintf("registry: duplicate registration for %s", key))
	}
	r.seen[key] = true
	r.endpoints = append(r.endpoints, endpoint)
}

// Endpoints returns the full table, for the discovery generator.
func (r *Registry) Endpoints() []Endpoint {
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Dispatch wires every registered endpoint onto engine, wrapping each one
// in the payment middleware for its own tier (Wrap is a no-op passthrough
// for a free tier).
func (r *Registry) Dispatch(engine *gin.Engine, mw *payment.Middleware) {
	for _, ep := range r.endpoints {
		route := payment.Route{
			Tier:           ep.Tier,
			Resource:       ep.Path,
			Description:    ep.Description,
			Category:       ep.Category,
			DiscoveryExtra: ep.DiscoveryExtra,
		}
		wrapped := mw.Wrap(route, ep.Handler)
		engine.Handle(ep.Method, ep.Path, wrapped)
	}
}

// NotFound is the fallback handler for unregistered routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no such resource"})
}
