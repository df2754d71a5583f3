package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacks402/gateway/internal/adapters"
	"github.com/stacks402/gateway/internal/payment"
	"github.com/stacks402/gateway/internal/protocol"
)

func TestChatHandlerMissingBodyIsBadRequest(t *testing.T) {
	provider := adapters.NewInferenceProvider("test", "key", "http://unused")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/inference/openrouter/chat", nil)

	ChatHandler(provider)(c)

	assert.Equal(t, http.StatusBadRequest, w.Code, "no ParsedBody and no request body to fall back to is a client error, not a 500")
}

// TestChatHandlerBindsBodyForStandardTier covers the standard-tier chat
// route (e.g. Cloudflare), which never goes through the dynamic-pricing
// parse and so must bind the body itself.
func TestChatHandlerBindsBodyForStandardTier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "test-model",
			"choices": []map[string]interface{}{
				{"finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": "hi"}},
			},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1},
		})
	}))
	defer server.Close()

	provider := adapters.NewInferenceProvider("test", "key", server.URL)

	w := performJSON(t, ChatHandler(provider), http.MethodPost, "/inference/cloudflare/chat", map[string]interface{}{
		"model":    "test-model",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp chatResponse
	decodeResult(t, w, &resp)
	assert.Equal(t, "hi", resp.Content)
}

func TestChatHandlerUsesParsedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "test-model",
			"choices": []map[string]interface{}{
				{"finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": "hi"}},
			},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1},
		})
	}))
	defer server.Close()

	provider := adapters.NewInferenceProvider("test", "key", server.URL)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/inference/openrouter/chat", nil)
	payment.SetParsedBody(c, &protocol.ChatPricingRequest{
		Model:    "test-model",
		Messages: []protocol.ChatMessage{{Role: "user", Content: "hi"}},
	})

	ChatHandler(provider)(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp chatResponse
	decodeResult(t, w, &resp)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestModelsHandlerListsCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "model-a", "pricing": map[string]string{"prompt": "0.000001", "completion": "0.000002"}},
			},
		})
	}))
	defer server.Close()

	provider := adapters.NewInferenceProvider("test", "key", server.URL)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/openrouter/models", nil)

	ModelsHandler(provider)(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Models []string `json:"models"`
	}
	decodeResult(t, w, &resp)
	assert.Contains(t, resp.Models, "model-a")
}
