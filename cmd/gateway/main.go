// Command gateway starts the x402 payment-gated HTTP gateway: it wires
// configuration, storage, pricing, settlement, and every registered
// endpoint into one gin engine and serves it.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/stacks402/gateway/internal/adapters"
	"github.com/stacks402/gateway/internal/config"
	"github.com/stacks402/gateway/internal/discovery"
	"github.com/stacks402/gateway/internal/facilitator"
	"github.com/stacks402/gateway/internal/handlers"
	"github.com/stacks402/gateway/internal/logging"
	"github.com/stacks402/gateway/internal/metrics"
	"github.com/stacks402/gateway/internal/modelcache"
	"github.com/stacks402/gateway/internal/payment"
	"github.com/stacks402/gateway/internal/pricing"
	"github.com/stacks402/gateway/internal/protocol"
	"github.com/stacks402/gateway/internal/registry"
	"github.com/stacks402/gateway/internal/safety"
	"github.com/stacks402/gateway/internal/shard"
)

// fallbackModelPricing seeds the dynamic tier's pricing engine before any
// model catalog refresh has completed, and stays in play for any model an
// upstream catalog doesn't itself price.
var fallbackModelPricing = map[string]pricing.ModelPricing{
	"gpt-4o-mini": {PromptPerK: 0.00015, CompletionPerK: 0.0006},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	network := protocol.NetworkIdentity{Kind: cfg.NetworkKind, Recipient: cfg.PayToAddress}
	if !network.Valid() {
		logger.Fatal("invalid network configuration")
	}

	shards, err := shard.NewManager(cfg.ShardDataDir)
	if err != nil {
		logger.Fatal("open shard manager", zap.Error(err))
	}
	defer shards.Close()

	facilitatorClient := facilitator.NewClient(cfg.FacilitatorURL, time.Duration(cfg.FacilitatorTimeout)*time.Second)

	openRouter := adapters.NewInferenceProvider("openrouter", cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL)
	cloudflare := adapters.NewInferenceProvider("cloudflare", cfg.CloudflareAPIKey, cfg.CloudflareBaseURL)

	modelCache := modelcache.New(openRouter, logger)
	pricingEngine := pricing.NewEngine(modelCache, fallbackModelPricing)

	blockchain := adapters.NewBlockchainProvider(cfg.BlockchainAPIBaseURL, cfg.BlockchainAPIKey)
	logSink := adapters.NewLogSink(cfg.LogSinkURL, logger)

	var classifier safety.Classifier
	if cfg.SafetyClassifierURL != "" {
		classifier = adapters.NewSafetyClassifier(cfg.SafetyClassifierKey, cfg.SafetyClassifierURL, "safety-default")
	} else {
		classifier = noopClassifier{}
	}
	scanner := safety.New(classifier, shards, logger)
	defer scanner.Close()

	metricsRecorder := metrics.New()

	reg := registry.New()
	registerHashing(reg, cfg.StandardTierSTX)
	registerStacks(reg, blockchain, cfg.StandardTierSTX)
	registerInference(reg, openRouter, cloudflare, pricingEngine)
	registerStorage(reg, shards, scanner, cfg.StandardTierSTX)

	paymentMW := payment.New(payment.Config{
		Network:       network,
		Facilitator:   facilitatorClient,
		PricingEngine: pricingEngine,
		Logger:        logger,
		Recorder:      metricsRecorder,
		AuditSink:     auditSink{logSink},
	})

	engine := gin.New()
	engine.Use(logging.RecoveryMiddleware())
	engine.Use(logging.CorrelationMiddleware(logger))
	engine.Use(ginCORS())

	engine.GET("/", handlers.Root)
	engine.GET("/health", handlers.Health)
	engine.GET("/openapi.json", handlers.OpenAPI(reg))
	engine.GET("/.well-known/agent.json", handlers.AgentCard(baseURL(cfg)))
	engine.GET("/llms.txt", handlers.LLMsText(reg))
	engine.GET("/llms-full.txt", handlers.LLMsFullText(reg))
	engine.GET("/topics", handlers.Topics(reg))
	engine.GET("/topics/:topic", handlers.TopicDetail(reg))
	engine.GET("/openrouter/models", handlers.ModelsHandler(openRouter))
	engine.GET("/cloudflare/models", handlers.ModelsHandler(cloudflare))
	engine.GET("/x402.json", handlers.MakeDiscoveryHandler(discovery.Generator{
		Network:       network,
		BaseURL:       baseURL(cfg),
		PricingEngine: pricingEngine,
	}, reg, func() int64 { return time.Now().Unix() }))

	reg.Dispatch(engine, paymentMW)
	engine.NoRoute(registry.NotFound)

	logger.Info("gateway listening", zap.String("port", cfg.Port))
	if err := engine.Run(":" + cfg.Port); err != nil {
		logger.Fatal("gateway server exited", zap.Error(err))
	}
}

// baseURL is the externally-visible root the discovery documents advertise.
// GATEWAY_BASE_URL overrides the localhost default for any real deployment.
func baseURL(cfg *config.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return "http://localhost:" + cfg.Port
}

// ginCORS adapts rs/cors, the library the rest of the pack reaches for, into
// a gin middleware.
func ginCORS() gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})
	handler := c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
		ctx.Next()
	}
}

func registerHashing(reg *registry.Registry, standardTierSTX float64) {
	for suffix, handler := range handlers.RegisterHashing() {
		reg.Register(registry.Endpoint{
			Method:      http.MethodPost,
			Path:        "/hashing/" + suffix,
			Tier:        protocol.Standard(standardTierSTX),
			Description: "compute a " + suffix + " digest",
			Category:    "hashing",
			Handler:     handler,
		})
	}
}

func registerStacks(reg *registry.Registry, blockchain *adapters.BlockchainProvider, standardTierSTX float64) {
	h := handlers.NewStacksHandlers(blockchain)
	entries := []struct {
		method, path, description string
		handler                   gin.HandlerFunc
	}{
		{http.MethodGet, "/stacks/address/:address", "look up account balances", h.Address},
		{http.MethodGet, "/stacks/profile/:address", "look up account transaction history", h.Profile},
		{http.MethodPost, "/stacks/decode/clarity", "decode a Clarity value", h.DecodeClarity},
		{http.MethodPost, "/stacks/decode/transaction", "decode a raw transaction", h.DecodeTransaction},
		{http.MethodPost, "/stacks/verify/message", "verify a signed message", h.VerifyMessage},
		{http.MethodPost, "/stacks/verify/sip018", "verify a SIP-018 structured signature", h.VerifySIP018},
	}
	for _, e := range entries {
		reg.Register(registry.Endpoint{
			Method:      e.method,
			Path:        e.path,
			Tier:        protocol.Standard(standardTierSTX),
			Description: e.description,
			Category:    "stacks",
			Handler:     e.handler,
		})
	}
}

func registerInference(reg *registry.Registry, openRouter, cloudflare *adapters.InferenceProvider, pricingEngine *pricing.Engine) {
	reg.Register(registry.Endpoint{
		Method:      http.MethodPost,
		Path:        "/inference/openrouter/chat",
		Tier:        protocol.Dynamic(pricingEngine.DynamicEstimate),
		Description: "OpenAI-compatible chat completion via OpenRouter",
		Category:    "inference",
		Handler:     handlers.ChatHandler(openRouter),
	})
	reg.Register(registry.Endpoint{
		Method:      http.MethodPost,
		Path:        "/inference/cloudflare/chat",
		Tier:        protocol.Standard(0.005),
		Description: "OpenAI-compatible chat completion via Cloudflare AI Gateway",
		Category:    "inference",
		Handler:     handlers.ChatHandler(cloudflare),
	})
}

func registerStorage(reg *registry.Registry, shards *shard.Manager, scanner *safety.Scanner, standardTierSTX float64) {
	kv := handlers.NewKVHandlers(shards, scanner)
	paste := handlers.NewPasteHandlers(shards, scanner)
	sqlHandlers := handlers.NewSQLHandlers(shards)
	sync := handlers.NewSyncHandlers(shards)
	queue := handlers.NewQueueHandlers(shards)
	memory := handlers.NewMemoryHandlers(shards, scanner)

	tier := protocol.Standard(standardTierSTX)

	entries := []struct {
		method, path, description, category string
		handler                              gin.HandlerFunc
	}{
		{http.MethodPost, "/storage/kv", "set a key-value entry", "storage-kv", kv.Set},
		{http.MethodGet, "/storage/kv/:key", "get a key-value entry", "storage-kv", kv.Get},
		{http.MethodDelete, "/storage/kv/:key", "delete a key-value entry", "storage-kv", kv.Delete},
		{http.MethodGet, "/storage/kv", "list key-value entries", "storage-kv", kv.List},

		{http.MethodPost, "/storage/paste", "create a paste", "storage-paste", paste.Create},
		{http.MethodGet, "/storage/paste/:id", "get a paste", "storage-paste", paste.Get},
		{http.MethodDelete, "/storage/paste/:id", "delete a paste", "storage-paste", paste.Delete},

		{http.MethodPost, "/storage/db/query", "run a read-only sandboxed query", "storage-sql", sqlHandlers.Query},
		{http.MethodPost, "/storage/db/execute", "run a sandboxed mutating statement", "storage-sql", sqlHandlers.Execute},
		{http.MethodGet, "/storage/db/schema", "introspect the shard's schema", "storage-sql", sqlHandlers.Schema},

		{http.MethodPost, "/storage/sync/lock", "acquire a named lock", "storage-sync", sync.Lock},
		{http.MethodPost, "/storage/sync/unlock", "release a named lock", "storage-sync", sync.Unlock},
		{http.MethodPost, "/storage/sync/extend", "extend a held lock", "storage-sync", sync.Extend},
		{http.MethodGet, "/storage/sync/status/:name", "check a lock's status", "storage-sync", sync.Status},
		{http.MethodGet, "/storage/sync/list", "list held locks", "storage-sync", sync.List},

		{http.MethodPost, "/storage/queue/push", "push queue jobs", "storage-queue", queue.Push},
		{http.MethodPost, "/storage/queue/pop", "pop queue jobs", "storage-queue", queue.Pop},
		{http.MethodPost, "/storage/queue/peek", "peek queue jobs", "storage-queue", queue.Peek},
		{http.MethodGet, "/storage/queue/status", "report queue status", "storage-queue", queue.Status},
		{http.MethodPost, "/storage/queue/clear", "clear a queue", "storage-queue", queue.Clear},

		{http.MethodPost, "/storage/memory/store", "store vector-memory items", "storage-memory", memory.Store},
		{http.MethodPost, "/storage/memory/search", "search vector-memory items", "storage-memory", memory.Search},
		{http.MethodPost, "/storage/memory/delete", "delete vector-memory items", "storage-memory", memory.Delete},
		{http.MethodGet, "/storage/memory/list", "list vector-memory items", "storage-memory", memory.List},
		{http.MethodPost, "/storage/memory/clear", "clear vector-memory items", "storage-memory", memory.Clear},
	}

	for _, e := range entries {
		reg.Register(registry.Endpoint{
			Method:      e.method,
			Path:        e.path,
			Tier:        tier,
			Description: e.description,
			Category:    e.category,
			Handler:     e.handler,
		})
	}
}

// noopClassifier is the default safety classifier when no external
// classifier is configured: it always reports the "unavailable" default
// verdict, matching the failure-path policy for a real classifier error.
type noopClassifier struct{}

func (noopClassifier) Classify(_ context.Context, _ string) (bool, float64, string, error) {
	return true, 0, "scan_unavailable", nil
}

// auditSink adapts adapters.LogSink's LogEntry shape to the payment
// package's narrower AuditEntry, so payment never has to import adapters.
type auditSink struct {
	sink *adapters.LogSink
}

func (a auditSink) Submit(entry payment.AuditEntry) {
	a.sink.Submit(adapters.LogEntry{
		Timestamp:     time.Now(),
		CorrelationID: entry.CorrelationID,
		Payer:         entry.Payer,
		Category:      entry.Category,
		Status:        entry.Status,
		Message:       entry.Message,
	})
}
