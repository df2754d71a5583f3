package adapters

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/stacks402/gateway/internal/safety"
)

// safetySystemPrompt fixes the classifier's instructions: a low-temperature
// call that must answer with exactly the strict JSON verdict shape the
// safety package parses.
const safetySystemPrompt = `You are a content safety classifier. Given the user's content, respond with ONLY a JSON object of the exact shape {"safe": boolean, "confidence": number between 0 and 1, "reason": string}. Do not include any other text.`

// SafetyClassifier implements safety.Classifier over an OpenAI-compatible
// chat completion endpoint.
type SafetyClassifier struct {
	client *openai.Client
	model  string
}

// NewSafetyClassifier builds a classifier pointed at baseURL using model
// for every classification call.
func NewSafetyClassifier(apiKey, baseURL, model string) *SafetyClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &SafetyClassifier{client: openai.NewClientWithConfig(cfg), model: model}
}

var _ safety.Classifier = (*SafetyClassifier)(nil)

// Classify implements safety.Classifier.
func (c *SafetyClassifier) Classify(ctx context.Context, content string) (bool, float64, string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: safetySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return false, 0, "", fmt.Errorf("safety classifier call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, 0, "", fmt.Errorf("safety classifier returned no choices")
	}

	safe, confidence, reason, err := safety.ParseVerdict([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		return false, 0, "", err
	}
	return safe, confidence, reason, nil
}
