package pricing

// CompiledFallback is the model price table baked into the binary, used
// whenever the model catalog cache is empty or its last refresh failed.
// Prices are USD per 1,000 tokens.
var CompiledFallback = map[string]ModelPricing{
	"openai/gpt-4o-mini":          {PromptPerK: 0.00015, CompletionPerK: 0.0006},
	"openai/gpt-4o":               {PromptPerK: 0.0025, CompletionPerK: 0.01},
	"anthropic/claude-3.5-sonnet": {PromptPerK: 0.003, CompletionPerK: 0.015},
	"anthropic/claude-3-haiku":    {PromptPerK: 0.00025, CompletionPerK: 0.00125},
	"meta-llama/llama-3.1-8b":     {PromptPerK: 0.00005, CompletionPerK: 0.00005},
	"@cf/meta/llama-3.1-8b-instruct": {PromptPerK: 0.0, CompletionPerK: 0.0},
}
