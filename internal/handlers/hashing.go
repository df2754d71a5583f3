// Package handlers wires the gateway's priced and free HTTP surface: each
// file implements one category of endpoint (hashing, blockchain lookups,
// inference, and the six storage primitives) over the packages that hold
// their actual logic (internal/shard, internal/adapters, internal/protocol).
package handlers

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for the on-chain hash160 primitive
	"golang.org/x/crypto/sha3"

	"github.com/stacks402/gateway/internal/httpx"
	"github.com/stacks402/gateway/internal/payment"
)

type hashRequest struct {
	Data     string `json:"data" binding:"required"`
	Encoding string `json:"encoding"`
}

// hashResponse is the fixed response shape for every hashing endpoint.
type hashResponse struct {
	OK          bool   `json:"ok"`
	Hash        string `json:"hash"`
	Algorithm   string `json:"algorithm"`
	Encoding    string `json:"encoding"`
	InputLength int    `json:"inputLength"`
	TokenType   string `json:"tokenType"`
}

// computeFn hashes decoded input bytes and returns the raw digest.
type computeFn func(input []byte) []byte

// makeHashHandler is the factory the hashing endpoint family is built from:
// one small closure per algorithm over a shared decode/respond skeleton,
// rather than a base class per algorithm.
func makeHashHandler(algorithm string, compute computeFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req hashRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid request body: "+err.Error())
			return
		}

		input, err := decodeInput(req.Data, req.Encoding)
		if err != nil {
			httpx.BadRequest(c, err.Error())
			return
		}

		digest := compute(input)

		httpx.OK(c, hashResponse{
			OK:          true,
			Hash:        hex.EncodeToString(digest),
			Algorithm:   algorithm,
			Encoding:    "hex",
			InputLength: len(input),
			TokenType:   string(payment.Token(c)),
		})
	}
}

// decodeInput applies the fixed decoding rule: data starting with "0x" is
// always hex regardless of the encoding field; otherwise the encoding field
// (if any) selects hex or base64 decoding, and the default is raw UTF-8.
func decodeInput(data, encoding string) ([]byte, error) {
	if strings.HasPrefix(data, "0x") {
		return hex.DecodeString(strings.TrimPrefix(data, "0x"))
	}
	switch encoding {
	case "hex":
		return hex.DecodeString(data)
	case "base64":
		return base64.StdEncoding.DecodeString(data)
	case "", "utf8", "utf-8":
		return []byte(data), nil
	default:
		return nil, errUnknownEncoding(encoding)
	}
}

type unknownEncodingError string

func (e unknownEncodingError) Error() string {
	return "unsupported encoding: " + string(e)
}

func errUnknownEncoding(encoding string) error {
	return unknownEncodingError(encoding)
}

func sha256Sum(input []byte) []byte {
	sum := sha256.Sum256(input)
	return sum[:]
}

func sha512Sum(input []byte) []byte {
	sum := sha512.Sum512(input)
	return sum[:]
}

func sha512_256Sum(input []byte) []byte {
	sum := sha512.Sum512_256(input)
	return sum[:]
}

func keccak256Sum(input []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(input)
	return h.Sum(nil)
}

func ripemd160Sum(input []byte) []byte {
	h := ripemd160.New()
	h.Write(input)
	return h.Sum(nil)
}

// hash160Sum is the standard Bitcoin/Stacks address digest: RIPEMD-160 of
// the SHA-256 digest.
func hash160Sum(input []byte) []byte {
	return ripemd160Sum(sha256Sum(input))
}

// RegisterHashing builds the six hashing handlers, keyed by their route
// suffix.
func RegisterHashing() map[string]gin.HandlerFunc {
	return map[string]gin.HandlerFunc{
		"sha256":     makeHashHandler("SHA-256", sha256Sum),
		"sha512":     makeHashHandler("SHA-512", sha512Sum),
		"sha512-256": makeHashHandler("SHA-512/256", sha512_256Sum),
		"keccak256":  makeHashHandler("Keccak-256", keccak256Sum),
		"hash160":    makeHashHandler("Hash160", hash160Sum),
		"ripemd160":  makeHashHandler("RIPEMD-160", ripemd160Sum),
	}
}
