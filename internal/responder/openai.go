// Package responder provides reply-dispatch collaborator implementations.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/neilzhangpro/moltbot-feishu/internal/bus"
)

const defaultSystemPrompt = "You are a helpful assistant replying inside a Feishu chat. Keep answers concise."

// chatService is the minimal chat-completion surface, narrowed for testing.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type sdkChatService struct {
	client openai.Client
}

func (s sdkChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// OpenAI answers inbound messages with a chat-completion reply. It produces
// at most one outbound payload per inbound context, asynchronously, through
// the delivery callback. One instance is shared across turns and accounts:
// new turns may start while another turn is blocked in WaitIdle, so pending
// completions are tracked with a counter and an idle broadcast channel.
type OpenAI struct {
	chat         chatService
	model        openai.ChatModel
	systemPrompt string

	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

// NewOpenAI creates an OpenAI-backed responder. model falls back to
// gpt-4o-mini, apiBase overrides the endpoint when non-empty.
func NewOpenAI(apiKey, apiBase, model, systemPrompt string) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai responder requires an api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(apiBase) != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}
	r := &OpenAI{
		chat:         sdkChatService{client: openai.NewClient(opts...)},
		model:        openai.ChatModelGPT4oMini,
		systemPrompt: defaultSystemPrompt,
	}
	if strings.TrimSpace(model) != "" {
		r.model = openai.ChatModel(model)
	}
	if strings.TrimSpace(systemPrompt) != "" {
		r.systemPrompt = systemPrompt
	}
	return r, nil
}

func (r *OpenAI) begin() {
	r.mu.Lock()
	if r.pending == 0 {
		r.idle = make(chan struct{})
	}
	r.pending++
	r.mu.Unlock()
}

func (r *OpenAI) finish() {
	r.mu.Lock()
	r.pending--
	if r.pending == 0 {
		close(r.idle)
		r.idle = nil
	}
	r.mu.Unlock()
}

// Respond schedules one completion and returns immediately. The reply, if
// any, is sent through deliver from the background task.
func (r *OpenAI) Respond(ctx context.Context, msg *bus.InboundContext, deliver bus.DeliverFunc) error {
	r.begin()
	go func() {
		defer r.finish()
		params := openai.ChatCompletionNewParams{
			Model: r.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(r.systemPrompt),
				openai.UserMessage(msg.Body),
			},
		}
		resp, err := r.chat.Create(ctx, params)
		if err != nil {
			slog.Error("Responder completion failed", "account", msg.AccountID, "chat_id", msg.To, "error", err)
			return
		}
		if len(resp.Choices) == 0 {
			slog.Warn("Responder returned no choices", "account", msg.AccountID)
			return
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return
		}
		if err := deliver(ctx, text); err != nil {
			slog.Error("Responder delivery failed", "account", msg.AccountID, "chat_id", msg.To, "error", err)
		}
	}()
	return nil
}

// WaitIdle blocks until all scheduled completions have finished delivering,
// or the context is cancelled. Completions scheduled while waiting are waited
// for as well.
func (r *OpenAI) WaitIdle(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.pending == 0 {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// MarkIdle signals the end of one turn. The completion tracking is handled
// by WaitIdle; nothing to reset here.
func (r *OpenAI) MarkIdle() {}
