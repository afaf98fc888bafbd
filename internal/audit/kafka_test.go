package audit

import (
	"context"
	"testing"
	"time"
)

func TestDisabledPublisherIsNoop(t *testing.T) {
	p := NewPublisher("", "moltbot.inbound")
	if p.Enabled() {
		t.Fatal("publisher without brokers should be disabled")
	}
	// Must not panic or block.
	p.Publish(context.Background(), Record{AccountID: "default", Timestamp: time.Now()})
	if err := p.Close(); err != nil {
		t.Fatalf("close disabled publisher: %v", err)
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	if p.Enabled() {
		t.Fatal("nil publisher should be disabled")
	}
	p.Publish(context.Background(), Record{})
}
