package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafetyClassifierParsesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "safety-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]string{
						"role":    "assistant",
						"content": `{"safe": false, "confidence": 0.9, "reason": "flagged"}`,
					},
				},
			},
		})
	}))
	defer server.Close()

	classifier := NewSafetyClassifier("key", server.URL, "safety-model")
	safe, confidence, reason, err := classifier.Classify(context.Background(), "some content")
	require.NoError(t, err)
	assert.False(t, safe)
	assert.Equal(t, 0.9, confidence)
	assert.Equal(t, "flagged", reason)
}
