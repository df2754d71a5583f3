// Package adapters holds thin clients for the gateway's external
// collaborators: inference providers, blockchain lookups, the embedding
// service, the logging sink, and the content-safety classifier. None of
// these implement business logic of their own; they translate between the
// gateway's internal shapes and whatever wire format the upstream expects.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sashabaranov/go-openai"

	"github.com/stacks402/gateway/internal/pricing"
	"github.com/stacks402/gateway/internal/protocol"
)

// InferenceProvider is a thin OpenAI-compatible chat completion client. The
// same type serves OpenRouter and Cloudflare AI Gateway, which differ only
// in base URL and API key — both speak the OpenAI chat completions wire
// format.
type InferenceProvider struct {
	name       string
	baseURL    string
	apiKey     string
	client     *openai.Client
	httpClient *http.Client
}

// NewInferenceProvider builds a provider pointed at baseURL. An empty
// baseURL falls back to the go-openai default (api.openai.com), which is
// only useful for local testing against a real OpenAI key.
func NewInferenceProvider(name, apiKey, baseURL string) *InferenceProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &InferenceProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     openai.NewClientWithConfig(cfg),
		httpClient: &http.Client{},
	}
}

// Name identifies the provider for logging and metrics labels.
func (p *InferenceProvider) Name() string {
	return p.name
}

// ChatResult is the shape handlers hand back to the client, independent of
// the upstream's own response envelope.
type ChatResult struct {
	Model            string
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompletion forwards a chat completion request upstream. Streaming is
// never requested: the paid path always waits for the full response before
// the handler can compute what was actually delivered, and a client that
// asked for `stream: true` in its body has that field silently ignored.
func (p *InferenceProvider) ChatCompletion(ctx context.Context, req protocol.ChatPricingRequest) (ChatResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	upstreamReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		upstreamReq.MaxTokens = *req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, upstreamReq)
	if err != nil {
		return ChatResult{}, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return ChatResult{}, fmt.Errorf("%s chat completion: upstream returned no choices", p.name)
	}

	choice := resp.Choices[0]
	return ChatResult{
		Model:            resp.Model,
		Content:          choice.Message.Content,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// modelsResponse is OpenRouter's /models shape, a superset of the plain
// OpenAI-compatible one: each entry may carry a per-token USD "pricing"
// block that go-openai's own Model type doesn't know about, so this
// package fetches and decodes it directly rather than going through the
// go-openai client.
type modelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Pricing struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// FetchModels implements modelcache.Provider. Models with no parseable
// per-token pricing are omitted rather than reported at a wrong (zero)
// cost; the pricing engine falls back to its compiled-in table for those.
func (p *InferenceProvider) FetchModels(ctx context.Context) (map[string]pricing.ModelPricing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("%s build models request: %w", p.name, err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s fetch models: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s fetch models: status %d", p.name, resp.StatusCode)
	}

	var parsed modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s decode models response: %w", p.name, err)
	}

	out := make(map[string]pricing.ModelPricing, len(parsed.Data))
	for _, m := range parsed.Data {
		promptPerToken, err1 := strconv.ParseFloat(m.Pricing.Prompt, 64)
		completionPerToken, err2 := strconv.ParseFloat(m.Pricing.Completion, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out[m.ID] = pricing.ModelPricing{
			PromptPerK:     promptPerToken * 1000,
			CompletionPerK: completionPerToken * 1000,
		}
	}
	return out, nil
}
