package payment

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacks402/gateway/internal/facilitator"
	"github.com/stacks402/gateway/internal/protocol"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testNetwork() protocol.NetworkIdentity {
	return protocol.NetworkIdentity{Kind: protocol.Testnet, Recipient: "SP_RECIPIENT"}
}

type fakeRecorder struct {
	requests   []string
	settlement time.Duration
}

func (f *fakeRecorder) RecordRequest(category, outcome, token, tier, amountAtomic, payer string, status int) {
	f.requests = append(f.requests, outcome)
}

func (f *fakeRecorder) ObserveSettlementDuration(d time.Duration) {
	f.settlement = d
}

type fakeAuditSink struct {
	entries []AuditEntry
}

func (f *fakeAuditSink) Submit(entry AuditEntry) {
	f.entries = append(f.entries, entry)
}

func TestWrapFreeTierSkipsPaymentEntirely(t *testing.T) {
	mw := New(Config{Network: testNetwork()})
	called := false
	handler := mw.Wrap(Route{Tier: protocol.Free()}, func(c *gin.Context) { called = true })

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/free", nil)
	handler(c)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWrapStandardTierEmitsChallengeWithoutPayment(t *testing.T) {
	mw := New(Config{Network: testNetwork()})
	handler := mw.Wrap(Route{Tier: protocol.Standard(0.01), Resource: "/priced", Category: "test"}, func(c *gin.Context) {
		t.Fatal("handler must not run before payment settles")
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/priced", nil)
	handler(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.NotEmpty(t, w.Header().Get("payment-required"))
}

func TestWrapStandardTierSettlesAndRecordsTelemetry(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(protocol.SettlementResult{Success: true, Payer: "SP_PAYER", Transaction: "0xabc"})
	}))
	defer relay.Close()

	recorder := &fakeRecorder{}
	audit := &fakeAuditSink{}

	mw := New(Config{
		Network:     testNetwork(),
		Facilitator: facilitator.NewClient(relay.URL, time.Second),
		Recorder:    recorder,
		AuditSink:   audit,
	})

	route := Route{Tier: protocol.Standard(0.01), Resource: "/priced", Category: "test"}
	var handlerRan bool
	handler := mw.Wrap(route, func(c *gin.Context) {
		handlerRan = true
		assert.Equal(t, "SP_PAYER", Payer(c))
		c.Status(http.StatusOK)
	})

	// First request: no payment header, expect a 402 challenge to harvest
	// a valid requirement to pay against.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/priced", nil)
	handler(c)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var challenge protocol.PaymentRequired
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))
	require.NotEmpty(t, challenge.Accepts)

	payload := protocol.PaymentPayload{
		X402Version: protocol.CurrentVersion,
		Accepted:    challenge.Accepts[0],
		Payload:     json.RawMessage(`{"signed":"opaque"}`),
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/priced", nil)
	c.Request.Header.Set("payment-signature", encoded)
	handler(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerRan)
	assert.Equal(t, "SP_PAYER", w.Header().Get("payer-address"))
	require.Len(t, recorder.requests, 1)
	assert.Equal(t, "success", recorder.requests[0])
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "SP_PAYER", audit.entries[0].Payer)
}

func TestWrapClassifiesSettlementFailure(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(protocol.SettlementResult{Success: false, ErrorReason: "insufficient funds"})
	}))
	defer relay.Close()

	recorder := &fakeRecorder{}
	mw := New(Config{
		Network:     testNetwork(),
		Facilitator: facilitator.NewClient(relay.URL, time.Second),
		Recorder:    recorder,
	})

	route := Route{Tier: protocol.Standard(0.01), Resource: "/priced", Category: "test"}
	handler := mw.Wrap(route, func(c *gin.Context) { t.Fatal("handler must not run on settlement failure") })

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/priced", nil)
	handler(c)

	assert.NotEqual(t, http.StatusOK, w.Code)
	require.Len(t, recorder.requests, 1)
	assert.Equal(t, "settlement_failed", recorder.requests[0])
}
