// Package safety implements the fire-and-forget content-safety side
// channel: handlers that write user-provided content schedule a scan
// without ever waiting on it, and a background worker classifies the
// content and upserts a verdict into the payer's shard.
package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stacks402/gateway/internal/shard"
)

// queueCapacity bounds the async submission channel; overflow drops the
// oldest pending job, matching the "bounded queue, overflow drops oldest"
// design for async side channels.
const queueCapacity = 512

// Classifier calls the external content-safety classifier. Implementations
// live in the adapters package; this package only depends on the
// interface, so it can be tested without a real HTTP dependency.
type Classifier interface {
	Classify(ctx context.Context, content string) (safe bool, confidence float64, reason string, err error)
}

// Job is one scheduled scan.
type Job struct {
	Payer       string
	ContentID   string
	ContentType shard.ContentType
	Content     string
}

// Scanner owns the bounded async queue and the background worker draining
// it.
type Scanner struct {
	classifier Classifier
	shards     *shard.Manager
	logger     *zap.Logger

	jobs chan Job
	done chan struct{}

	warnedOverflowAt time.Time
}

// New builds a Scanner and starts its background worker. Call Close to
// stop it.
func New(classifier Classifier, shards *shard.Manager, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scanner{
		classifier: classifier,
		shards:     shards,
		logger:     logger,
		jobs:       make(chan Job, queueCapacity),
		done:       make(chan struct{}),
	}
	go s.run()
	return s
}

// Close stops the background worker after it drains any jobs already
// queued, and blocks until it has exited.
func (s *Scanner) Close() {
	close(s.jobs)
	<-s.done
}

// Schedule enqueues a scan without blocking the caller. If the queue is
// full, the oldest pending job is dropped to make room, and a warning is
// logged at most once per window.
func (s *Scanner) Schedule(job Job) {
	select {
	case s.jobs <- job:
		return
	default:
	}

	select {
	case <-s.jobs:
	default:
	}
	select {
	case s.jobs <- job:
	default:
	}

	if time.Since(s.warnedOverflowAt) > time.Minute {
		s.warnedOverflowAt = time.Now()
		s.logger.Warn("safety scan queue overflow, dropping oldest pending job")
	}
}

func (s *Scanner) run() {
	defer close(s.done)
	for job := range s.jobs {
		s.process(job)
	}
}

func (s *Scanner) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	safe, confidence, reason, err := s.classifier.Classify(ctx, job.Content)
	if err != nil {
		safe, confidence, reason = true, 0, "scan_unavailable"
		s.logger.Warn("safety scan classifier failed, storing default-safe verdict",
			zap.String("contentId", job.ContentID), zap.Error(err))
	}
	confidence = clamp01(confidence)

	sh, err := s.shards.Get(ctx, job.Payer)
	if err != nil {
		s.logger.Error("safety scan could not open shard to store verdict",
			zap.String("payer", job.Payer), zap.Error(err))
		return
	}

	reasonCopy := reason
	if err := sh.ScanStore(ctx, shard.ScanVerdict{
		ContentID:   job.ContentID,
		ContentType: job.ContentType,
		Safe:        safe,
		Confidence:  confidence,
		Reason:      &reasonCopy,
		ScannedAt:   time.Now().Unix(),
	}); err != nil {
		s.logger.Error("safety scan failed to store verdict", zap.String("contentId", job.ContentID), zap.Error(err))
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// verdictJSON is the strict shape the classifier's response is expected to
// parse into.
type verdictJSON struct {
	Safe       bool    `json:"safe"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ParseVerdict parses a classifier's raw JSON response body into its three
// fields, used by adapter implementations of Classifier.
func ParseVerdict(raw []byte) (safe bool, confidence float64, reason string, err error) {
	var v verdictJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, 0, "", fmt.Errorf("parse safety verdict: %w", err)
	}
	return v.Safe, v.Confidence, v.Reason, nil
}
