// Package bus defines the shapes exchanged between the Feishu transport and
// the reply-dispatch collaborator.
package bus

import (
	"context"
	"time"
)

// ChatType classifies a conversation as a group chat or a direct chat.
type ChatType string

const (
	ChatTypeGroup  ChatType = "group"
	ChatTypeDirect ChatType = "direct"
)

// InboundContext is the normalized shape of one inbound text message. By the
// time it is constructed, Body is non-empty trimmed text; empty or non-text
// messages are dropped upstream.
type InboundContext struct {
	Provider  string   `json:"provider"`
	Surface   string   `json:"surface"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	ChatType  ChatType `json:"chat_type"`
	ReplyToID string   `json:"reply_to_id"`
	Body      string   `json:"body"`
	AccountID string   `json:"account_id"`
}

// DeliverFunc sends one outbound text payload back to the originating chat.
type DeliverFunc func(ctx context.Context, text string) error

// Responder is the reply-dispatch collaborator. Respond may produce zero or
// more outbound payloads asynchronously through the delivery callback. The
// caller must await WaitIdle before treating the turn as complete and must
// always invoke MarkIdle on exit, including on failure paths.
type Responder interface {
	Respond(ctx context.Context, msg *InboundContext, deliver DeliverFunc) error
	WaitIdle(ctx context.Context) error
	MarkIdle()
}

// StatusPatch carries activity timestamp updates for external status display.
// Nil fields mean "no change".
type StatusPatch struct {
	LastInboundAt  *time.Time `json:"last_inbound_at,omitempty"`
	LastOutboundAt *time.Time `json:"last_outbound_at,omitempty"`
}

// StatusSink receives per-account status patches.
type StatusSink func(accountID string, patch StatusPatch)
