// Package config loads the gateway's process configuration from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/stacks402/gateway/internal/protocol"
)

// Config holds everything the gateway needs to start.
type Config struct {
	Port    string
	Env     string
	BaseURL string

	NetworkKind    protocol.NetworkKind
	PayToAddress   string

	FacilitatorURL     string
	FacilitatorTimeout int

	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	CloudflareBaseURL string
	CloudflareAPIKey  string

	BlockchainAPIBaseURL string
	BlockchainAPIKey     string
	EmbeddingsBaseURL    string
	EmbeddingsAPIKey     string
	LogSinkURL           string
	SafetyClassifierURL  string
	SafetyClassifierKey  string

	ShardDataDir string

	StandardTierSTX float64
}

// Load reads configuration from the environment, loading a .env file first
// if one is present (ignored if missing — environment variables always win
// since godotenv.Load never overwrites an already-set variable).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("GATEWAY_HTTP_PORT", "8080"),
		Env:                  getEnv("GATEWAY_ENV", "development"),
		BaseURL:              getEnv("GATEWAY_BASE_URL", ""),
		PayToAddress:         getEnv("GATEWAY_PAY_TO", ""),
		FacilitatorURL:       getEnv("GATEWAY_FACILITATOR_URL", "http://localhost:4000"),
		FacilitatorTimeout:   getEnvInt("GATEWAY_FACILITATOR_TIMEOUT_SECONDS", 120),
		OpenRouterBaseURL:    getEnv("GATEWAY_OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterAPIKey:     getEnv("GATEWAY_OPENROUTER_API_KEY", ""),
		CloudflareBaseURL:    getEnv("GATEWAY_CLOUDFLARE_BASE_URL", ""),
		CloudflareAPIKey:     getEnv("GATEWAY_CLOUDFLARE_API_KEY", ""),
		BlockchainAPIBaseURL: getEnv("GATEWAY_STACKS_API_BASE_URL", "https://api.hiro.so"),
		BlockchainAPIKey:     getEnv("GATEWAY_STACKS_API_KEY", ""),
		EmbeddingsBaseURL:    getEnv("GATEWAY_EMBEDDINGS_BASE_URL", ""),
		EmbeddingsAPIKey:     getEnv("GATEWAY_EMBEDDINGS_API_KEY", ""),
		LogSinkURL:           getEnv("GATEWAY_LOG_SINK_URL", ""),
		SafetyClassifierURL:  getEnv("GATEWAY_SAFETY_CLASSIFIER_URL", ""),
		SafetyClassifierKey:  getEnv("GATEWAY_SAFETY_CLASSIFIER_KEY", ""),
		ShardDataDir:         getEnv("GATEWAY_SHARD_DATA_DIR", "./data/shards"),
		StandardTierSTX:      getEnvFloat("GATEWAY_STANDARD_TIER_STX", 0.01),
	}

	switch getEnv("GATEWAY_NETWORK", "testnet") {
	case "mainnet":
		cfg.NetworkKind = protocol.Mainnet
	case "testnet":
		cfg.NetworkKind = protocol.Testnet
	default:
		return nil, fmt.Errorf("GATEWAY_NETWORK must be 'mainnet' or 'testnet'")
	}

	if cfg.PayToAddress == "" {
		return nil, fmt.Errorf("GATEWAY_PAY_TO is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
