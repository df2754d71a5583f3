// Package metrics implements the gateway's process-global usage plane:
// Prometheus counters by category and token, plus a small mutex-guarded
// ring buffer of recent requests for quick diagnostics. The per-payer plane
// lives in each payer's shard (see internal/shard) and is recorded by
// handlers directly; this package only owns the process-wide numbers.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const recentRingCapacity = 200

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of requests to priced endpoints, by category and outcome.",
		},
		[]string{"category", "outcome"},
	)
	revenueAtomicTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_revenue_atomic_units_total",
			Help: "Total settled revenue in atomic token units, by token and tier.",
		},
		[]string{"token", "tier"},
	)
	settlementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_settlement_duration_seconds",
			Help:    "Settlement relay round-trip duration.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, revenueAtomicTotal, settlementDuration)
}

// RecentRequest is one entry of the recent-request ring.
type RecentRequest struct {
	Timestamp time.Time
	Category  string
	Payer     string
	Token     string
	Amount    string
	Status    int
}

// Recorder owns the recent-request ring; the Prometheus vectors above are
// process globals by design (single owner, atomic replace via the client
// library's own locking) and don't need a Recorder instance to update.
type Recorder struct {
	mu     sync.Mutex
	recent []RecentRequest
}

// New builds an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// RecordRequest records one completed request into both the Prometheus
// counters and the recent-request ring. Called asynchronously relative to
// the response — a lost update here is acceptable (the response itself
// already carries the settlement receipt).
func (r *Recorder) RecordRequest(category, outcome, token, tier, amountAtomic, payer string, status int) {
	requestsTotal.WithLabelValues(category, outcome).Inc()
	if outcome == "success" {
		revenueAtomicTotal.WithLabelValues(token, tier).Add(atomicToFloat(amountAtomic))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = append(r.recent, RecentRequest{
		Timestamp: time.Now(),
		Category:  category,
		Payer:     payer,
		Token:     token,
		Amount:    amountAtomic,
		Status:    status,
	})
	if len(r.recent) > recentRingCapacity {
		r.recent = r.recent[len(r.recent)-recentRingCapacity:]
	}
}

// ObserveSettlementDuration records one settlement relay round trip.
func (r *Recorder) ObserveSettlementDuration(d time.Duration) {
	settlementDuration.Observe(d.Seconds())
}

// Recent returns a copy of the current recent-request ring, oldest first.
func (r *Recorder) Recent() []RecentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecentRequest, len(r.recent))
	copy(out, r.recent)
	return out
}

// atomicToFloat is a best-effort decimal-string-to-float64 conversion for
// metrics purposes only; nothing settlement-critical ever depends on this
// value's precision (the response itself carries the exact big.Int string).
func atomicToFloat(amount string) float64 {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0
	}
	return f
}
