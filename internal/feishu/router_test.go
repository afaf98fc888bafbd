package feishu

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neilzhangpro/moltbot-feishu/internal/dedup"
)

func countingRouter(counter *atomic.Int32) *Router {
	return NewRouter("default", dedup.New(), Handlers{
		Message: func(ctx context.Context, msg *MessageEvent) {
			counter.Add(1)
		},
	})
}

func TestDispatchDuplicateDropped(t *testing.T) {
	var handled atomic.Int32
	r := countingRouter(&handled)

	ev := &Event{Kind: KindMessage, EventID: "evt-1", Message: &MessageEvent{MessageID: "om_1"}}
	r.Dispatch(ev)
	r.Dispatch(ev)
	r.Wait()

	if got := handled.Load(); got != 1 {
		t.Fatalf("duplicate event id must be handled once, got %d", got)
	}
}

func TestDispatchEmptyEventIDAlwaysNovel(t *testing.T) {
	var handled atomic.Int32
	r := countingRouter(&handled)

	r.Dispatch(&Event{Kind: KindMessage, Message: &MessageEvent{MessageID: "om_1"}})
	r.Dispatch(&Event{Kind: KindMessage, Message: &MessageEvent{MessageID: "om_2"}})
	r.Wait()

	if got := handled.Load(); got != 2 {
		t.Fatalf("events without ids must never deduplicate, got %d", got)
	}
}

func TestSharedCacheDedupesAcrossRouters(t *testing.T) {
	cache := dedup.New()
	var handled atomic.Int32
	handlers := Handlers{
		Message: func(ctx context.Context, msg *MessageEvent) {
			handled.Add(1)
		},
	}
	first := NewRouter("default", cache, handlers)
	second := NewRouter("backup", cache, handlers)

	ev := &Event{Kind: KindMessage, EventID: "evt-shared", Message: &MessageEvent{MessageID: "om_1"}}
	first.Dispatch(ev)
	second.Dispatch(ev)
	first.Wait()
	second.Wait()

	if got := handled.Load(); got != 1 {
		t.Fatalf("an event id seen by one account must be a duplicate for all, got %d", got)
	}
}

func TestDispatchUnrecognizedKindDropped(t *testing.T) {
	var handled atomic.Int32
	r := countingRouter(&handled)

	r.Dispatch(&Event{Kind: KindUnrecognized, EventID: "evt-x"})
	r.Dispatch(&Event{Kind: EventKind("something_new"), EventID: "evt-y"})
	r.Wait()

	if got := handled.Load(); got != 0 {
		t.Fatalf("unrecognized kinds must be dropped, got %d handled", got)
	}
}

func TestDispatchReturnsBeforeHandlerFinishes(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	r := NewRouter("default", dedup.New(), Handlers{
		Message: func(ctx context.Context, msg *MessageEvent) {
			close(started)
			<-release
		},
	})

	done := make(chan struct{})
	go func() {
		r.Dispatch(&Event{Kind: KindMessage, EventID: "evt-1", Message: &MessageEvent{}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch must return without waiting for the handler")
	}
	<-started
	close(release)
	r.Wait()
}

func TestDispatchHandlerPanicIsContained(t *testing.T) {
	r := NewRouter("default", dedup.New(), Handlers{
		Message: func(ctx context.Context, msg *MessageEvent) {
			panic("handler bug")
		},
	})
	r.Dispatch(&Event{Kind: KindMessage, EventID: "evt-1", Message: &MessageEvent{}})
	r.Wait()
}
