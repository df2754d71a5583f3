package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performJSON(t *testing.T, handler gin.HandlerFunc, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

// decodeResult decodes an httpx.OK/Created body into v. Success payloads are
// flattened onto the envelope's top level (see httpx.envelope), so this is a
// plain decode, not an unwrap.
func decodeResult(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHashingSHA256KnownVector(t *testing.T) {
	handlers := RegisterHashing()
	w := performJSON(t, handlers["sha256"], http.MethodPost, "/hashing/sha256", map[string]string{"data": "hello world"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp hashResponse
	decodeResult(t, w, &resp)
	assert.True(t, resp.OK)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", resp.Hash)
	assert.Equal(t, "hex", resp.Encoding)
	assert.Equal(t, "SHA-256", resp.Algorithm)
}

func TestHashingHexPrefixOverridesEncoding(t *testing.T) {
	handlers := RegisterHashing()
	w := performJSON(t, handlers["sha256"], http.MethodPost, "/hashing/sha256", map[string]string{
		"data":     "0x68656c6c6f",
		"encoding": "utf8",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp hashResponse
	decodeResult(t, w, &resp)
	assert.Equal(t, 5, resp.InputLength, "0x prefix must force hex decoding regardless of the encoding field")
}

func TestHashingUnknownEncodingIsBadRequest(t *testing.T) {
	handlers := RegisterHashing()
	w := performJSON(t, handlers["sha256"], http.MethodPost, "/hashing/sha256", map[string]string{
		"data":     "hello",
		"encoding": "rot13",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHashingHash160IsRipemdOfSha256(t *testing.T) {
	handlers := RegisterHashing()
	w := performJSON(t, handlers["hash160"], http.MethodPost, "/hashing/hash160", map[string]string{"data": "hello world"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp hashResponse
	decodeResult(t, w, &resp)
	assert.Equal(t, "Hash160", resp.Algorithm)
	assert.Len(t, resp.Hash, 40, "RIPEMD-160 digest is 20 bytes, 40 hex characters")
}

func TestHashingMissingDataIsBadRequest(t *testing.T) {
	handlers := RegisterHashing()
	w := performJSON(t, handlers["keccak256"], http.MethodPost, "/hashing/keccak256", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
