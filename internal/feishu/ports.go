// Package feishu implements the Feishu (Lark) transport: persistent-
// connection lifecycle, event routing, message ingestion, and broadcast
// fan-out.
package feishu

import "context"

// Messenger is the outbound messaging surface of the transport. The SDK
// client implements it; tests inject fakes.
type Messenger interface {
	// SendText creates a new text message in chatID and returns the new
	// message id.
	SendText(ctx context.Context, chatID, text string) (string, error)
	// ReplyText replies to messageID with text and returns the new message id.
	ReplyText(ctx context.Context, messageID, text string) (string, error)
	// ListChats returns the ids of every chat the bot participates in.
	// Pagination is handled internally.
	ListChats(ctx context.Context) ([]string, error)
}

// BotInfo is the cached bot identity for one application.
type BotInfo struct {
	OpenID  string
	AppName string
}

// Stream is one persistent event connection. Start blocks until the
// connection terminates or ctx is cancelled; cancelling ctx is the shutdown
// mechanism.
type Stream interface {
	Start(ctx context.Context) error
}

// StreamFactory builds the persistent connection for an account with the
// router registered as event callback. Injected so tests can run without a
// network.
type StreamFactory func(appID, appSecret, baseDomain string, router *Router) Stream
