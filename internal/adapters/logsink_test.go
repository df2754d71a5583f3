package adapters

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogSinkDeliversEntries(t *testing.T) {
	var mu sync.Mutex
	var received []LogEntry

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var entry LogEntry
		require.NoError(t, json.NewDecoder(r.Body).Decode(&entry))
		mu.Lock()
		received = append(received, entry)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewLogSink(server.URL, zap.NewNop())
	sink.Submit(LogEntry{CorrelationID: "abc", Category: "hashing", Status: 200})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "abc", received[0].CorrelationID)
	mu.Unlock()
}

func TestLogSinkWithoutURLDoesNotBlock(t *testing.T) {
	sink := NewLogSink("", zap.NewNop())
	sink.Submit(LogEntry{CorrelationID: "no-op"})
}
