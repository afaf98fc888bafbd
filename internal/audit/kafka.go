// Package audit mirrors normalized inbound events to a Kafka topic.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Record is one audited inbound event.
type Record struct {
	AccountID string    `json:"account_id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	EventType string    `json:"event_type"`
	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes audit records to Kafka. A nil or disabled publisher is
// safe to use; Publish becomes a no-op. Failures are logged, never surfaced:
// the mirror must not affect the event pipeline.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the comma-separated broker list.
// Empty brokers return a disabled publisher.
func NewPublisher(brokers, topic string) *Publisher {
	brokers = strings.TrimSpace(brokers)
	if brokers == "" {
		return &Publisher{}
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(brokers, ",")...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Enabled reports whether records are actually written.
func (p *Publisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// Publish mirrors one record. Fire-and-forget: errors are logged.
func (p *Publisher) Publish(ctx context.Context, rec Record) {
	if !p.Enabled() {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("Audit record marshal failed", "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(rec.AccountID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Warn("Audit publish failed", "account", rec.AccountID, "event_type", rec.EventType, "error", err)
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
