package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stacks402/gateway/internal/adapters"
	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/payment"
)

type chatResponse struct {
	OK               bool   `json:"ok"`
	Model            string `json:"model"`
	Content          string `json:"content"`
	FinishReason     string `json:"finishReason"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

// ChatHandler builds a chat completion handler over provider. For dynamic-
// tier routes, the request body was already parsed once by the payment
// middleware while deriving the price estimate, and the handler reuses that
// parse instead of reading the body a second time. Standard-tier routes
// (e.g. the fixed-price Cloudflare endpoint) never go through that parse, so
// the handler binds the body itself in that case.
func ChatHandler(provider *adapters.InferenceProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := payment.ParsedBody(c)
		if body == nil {
			var err error
			body, err = payment.BindChatRequest(c)
			if err != nil {
				httpx.BadRequest(c, err.Error())
				return
			}
		}

		result, err := provider.ChatCompletion(c.Request.Context(), *body)
		if err != nil {
			httpx.Error(c, 502, "inference provider error: "+err.Error())
			return
		}

		httpx.OK(c, chatResponse{
			OK:               true,
			Model:            result.Model,
			Content:          result.Content,
			FinishReason:     result.FinishReason,
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
		})
	}
}

// ModelsHandler builds the free `/{provider}/models` endpoint: it lists
// whatever the model catalog currently has cached, without pricing detail
// (pricing is only meaningful in the context of a specific request).
func ModelsHandler(provider *adapters.InferenceProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		models, err := provider.FetchModels(c.Request.Context())
		if err != nil {
			httpx.Error(c, 502, "could not list models: "+err.Error())
			return
		}
		names := make([]string, 0, len(models))
		for name := range models {
			names = append(names, name)
		}
		httpx.OK(c, gin.H{"models": names})
	}
}
