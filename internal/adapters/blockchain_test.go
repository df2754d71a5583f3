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

func TestBlockchainProviderAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extended/v1/address/SP123/balances", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"stx": "100"})
	}))
	defer server.Close()

	provider := NewBlockchainProvider(server.URL, "test-key")
	raw, err := provider.Address(context.Background(), "SP123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stx":"100"}`, string(raw))
}

func TestBlockchainProviderUpstreamErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	provider := NewBlockchainProvider(server.URL, "")
	_, err := provider.DecodeClarity(context.Background(), "0x00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
