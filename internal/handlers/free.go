package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/discovery"
	"github.com/stacks402/gateway/internal/registry"
)

// Root handles GET /.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": "stacks402-gateway",
	})
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "healthy"})
}

// MakeDiscoveryHandler builds the GET /x402.json handler over gen and reg.
// now is injected so the handler stays deterministic given a fixed clock
// (production wiring passes time.Now().Unix() at call time).
func MakeDiscoveryHandler(gen discovery.Generator, reg *registry.Registry, now func() int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		manifest, err := gen.Generate(reg, now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not render discovery manifest: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, manifest)
	}
}

// AgentCard handles GET /.well-known/agent.json, the free agent-discovery
// document distinct from the priced x402.json manifest.
func AgentCard(baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "stacks402-gateway",
			"description": "Blockchain-micropayment-gated compute and storage endpoints.",
			"url":         baseURL,
			"x402": gin.H{
				"discovery": baseURL + "/x402.json",
			},
		})
	}
}

// LLMsText handles GET /llms.txt, a short plaintext index for LLM crawlers.
func LLMsText(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := "# stacks402-gateway\n\nA blockchain-micropayment-gated HTTP gateway.\nSee /x402.json for the machine-readable discovery manifest.\n"
		c.String(http.StatusOK, body)
	}
}

// LLMsFullText handles GET /llms-full.txt, an expanded plaintext index
// enumerating every registered resource.
func LLMsFullText(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := "# stacks402-gateway (full index)\n\n"
		for _, ep := range reg.Endpoints() {
			body += ep.Method + " " + ep.Path + " — " + ep.Description + "\n"
		}
		c.String(http.StatusOK, body)
	}
}

// topicIndex groups registered endpoints by category for the /topics
// surface.
func topicIndex(reg *registry.Registry) map[string][]registry.Endpoint {
	index := make(map[string][]registry.Endpoint)
	for _, ep := range reg.Endpoints() {
		index[ep.Category] = append(index[ep.Category], ep)
	}
	return index
}

// Topics handles GET /topics: the list of endpoint categories.
func Topics(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		index := topicIndex(reg)
		topics := make([]string, 0, len(index))
		for topic := range index {
			topics = append(topics, topic)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "topics": topics})
	}
}

// TopicDetail handles GET /topics/{topic}: the endpoints within one
// category.
func TopicDetail(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		topic := c.Param("topic")
		index := topicIndex(reg)
		endpoints, ok := index[topic]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no such topic"})
			return
		}
		type entry struct {
			Method      string `json:"method"`
			Path        string `json:"path"`
			Description string `json:"description"`
		}
		out := make([]entry, 0, len(endpoints))
		for _, ep := range endpoints {
			out = append(out, entry{Method: ep.Method, Path: ep.Path, Description: ep.Description})
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "topic": topic, "endpoints": out})
	}
}

// OpenAPI handles GET /openapi.json: a minimal but valid OpenAPI document
// derived from the registry.
func OpenAPI(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		paths := gin.H{}
		for _, ep := range reg.Endpoints() {
			methodEntry, ok := paths[ep.Path].(gin.H)
			if !ok {
				methodEntry = gin.H{}
			}
			methodEntry[strings.ToLower(ep.Method)] = gin.H{
				"summary":  ep.Description,
				"tags":     []string{ep.Category},
				"responses": gin.H{"200": gin.H{"description": "ok"}},
			}
			paths[ep.Path] = methodEntry
		}

		c.JSON(http.StatusOK, gin.H{
			"openapi": "3.0.3",
			"info":    gin.H{"title": "stacks402-gateway", "version": "1"},
			"paths":   paths,
		})
	}
}
