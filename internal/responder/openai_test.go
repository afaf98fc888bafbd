package responder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/neilzhangpro/moltbot-feishu/internal/bus"
)

type mockChatService struct {
	content string
	err     error
}

func (m mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	if m.err != nil {
		return openai.ChatCompletion{}, m.err
	}
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.content}},
		},
	}, nil
}

func testInbound() *bus.InboundContext {
	return &bus.InboundContext{
		Provider:  "feishu",
		From:      "ou_user",
		To:        "oc_chat",
		Body:      "hello",
		AccountID: "default",
	}
}

func TestRespondDeliversCompletion(t *testing.T) {
	r := &OpenAI{chat: mockChatService{content: " hi there "}, model: openai.ChatModelGPT4oMini, systemPrompt: defaultSystemPrompt}

	var mu sync.Mutex
	var delivered []string
	deliver := func(ctx context.Context, text string) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, text)
		return nil
	}

	if err := r.Respond(context.Background(), testInbound(), deliver); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if err := r.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}
	r.MarkIdle()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0] != "hi there" {
		t.Fatalf("expected one trimmed payload, got %v", delivered)
	}
}

func TestRespondSwallowsCompletionFailure(t *testing.T) {
	r := &OpenAI{chat: mockChatService{err: errors.New("rate limited")}, model: openai.ChatModelGPT4oMini, systemPrompt: defaultSystemPrompt}

	delivered := false
	deliver := func(ctx context.Context, text string) error {
		delivered = true
		return nil
	}
	if err := r.Respond(context.Background(), testInbound(), deliver); err != nil {
		t.Fatalf("respond should not surface completion errors: %v", err)
	}
	if err := r.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}
	if delivered {
		t.Fatal("failed completion must not deliver a payload")
	}
}

func TestWaitIdleHonorsContext(t *testing.T) {
	r := &OpenAI{chat: mockChatService{}, model: openai.ChatModelGPT4oMini}
	r.begin() // never released until after the wait
	defer r.finish()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.WaitIdle(ctx); err == nil {
		t.Fatal("expected context error while work is pending")
	}
}

// gatedChatService blocks every completion until release is closed.
type gatedChatService struct {
	release <-chan struct{}
	content string
}

func (g gatedChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	<-g.release
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: g.content}},
		},
	}, nil
}

func TestWaitIdleCoversTurnsStartedMidWait(t *testing.T) {
	release := make(chan struct{})
	r := &OpenAI{chat: gatedChatService{release: release, content: "ok"}, model: openai.ChatModelGPT4oMini, systemPrompt: defaultSystemPrompt}

	var delivered atomic.Int32
	deliver := func(ctx context.Context, text string) error {
		delivered.Add(1)
		return nil
	}

	if err := r.Respond(context.Background(), testInbound(), deliver); err != nil {
		t.Fatalf("respond: %v", err)
	}
	waitDone := make(chan error, 1)
	go func() { waitDone <- r.WaitIdle(context.Background()) }()

	// A second turn arrives while the first wait is in flight. This is the
	// shared-instance case: pending goes 1 -> 2 under an active wait.
	if err := r.Respond(context.Background(), testInbound(), deliver); err != nil {
		t.Fatalf("respond: %v", err)
	}

	select {
	case <-waitDone:
		t.Fatal("WaitIdle returned while completions were pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-waitDone; err != nil {
		t.Fatalf("wait idle: %v", err)
	}
	if got := delivered.Load(); got != 2 {
		t.Fatalf("delivered %d payloads before idle, want 2", got)
	}
}

func TestConcurrentRespondAndWaitIdle(t *testing.T) {
	r := &OpenAI{chat: mockChatService{content: "ok"}, model: openai.ChatModelGPT4oMini, systemPrompt: defaultSystemPrompt}
	deliver := func(ctx context.Context, text string) error { return nil }

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Respond(context.Background(), testInbound(), deliver); err != nil {
				t.Errorf("respond: %v", err)
			}
			if err := r.WaitIdle(context.Background()); err != nil {
				t.Errorf("wait idle: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := r.WaitIdle(context.Background()); err != nil {
		t.Fatalf("final wait idle: %v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != 0 {
		t.Fatalf("pending = %d after all turns drained", r.pending)
	}
}
