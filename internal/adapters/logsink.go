package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// logSinkQueueCapacity bounds the async submission channel to the external
// logging sink; overflow drops the oldest pending entry, the same policy
// used for the safety-scan side channel.
const logSinkQueueCapacity = 1024

// LogEntry is one append-only record shipped to the external structured
// logging sink.
type LogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	CorrelationID string   `json:"correlationId"`
	Payer        string    `json:"payer,omitempty"`
	Category     string    `json:"category"`
	Status       int       `json:"status"`
	Message      string    `json:"message,omitempty"`
}

// LogSink ships entries to an external append-only RPC as a fire-and-forget
// side channel: callers never block on delivery, and a down or slow sink
// never delays the request it was recording.
type LogSink struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger

	entries chan LogEntry

	warnedOverflowAt time.Time
}

// NewLogSink builds a sink and starts its background delivery worker. An
// empty url disables delivery entirely: entries are accepted and dropped,
// since the sink binding is an optional part of the process configuration.
func NewLogSink(url string, logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LogSink{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		entries:    make(chan LogEntry, logSinkQueueCapacity),
	}
	go s.run()
	return s
}

// Submit enqueues an entry without blocking the caller.
func (s *LogSink) Submit(entry LogEntry) {
	select {
	case s.entries <- entry:
		return
	default:
	}

	select {
	case <-s.entries:
	default:
	}
	select {
	case s.entries <- entry:
	default:
	}

	if time.Since(s.warnedOverflowAt) > time.Minute {
		s.warnedOverflowAt = time.Now()
		s.logger.Warn("log sink queue overflow, dropping oldest pending entry")
	}
}

func (s *LogSink) run() {
	for entry := range s.entries {
		s.deliver(entry)
	}
}

func (s *LogSink) deliver(entry LogEntry) {
	if s.url == "" {
		return
	}

	body, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("log sink entry could not be marshalled", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("log sink request could not be built", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("log sink delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
}
