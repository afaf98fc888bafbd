package feishu

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/neilzhangpro/moltbot-feishu/internal/dedup"
)

// Handlers are the per-kind event consumers the router dispatches into. Nil
// handlers drop their kind.
type Handlers struct {
	Message         func(ctx context.Context, msg *MessageEvent)
	P2PChatEntered  func(ctx context.Context, chatID string)
	MemberAdded     func(ctx context.Context, chatID string, userIDs, names []string)
	FileChanged     func(ctx context.Context, kind EventKind, raw json.RawMessage)
	CalendarChanged func(ctx context.Context, kind EventKind, raw json.RawMessage)
}

// Router deduplicates decoded events and hands them to the kind handlers on
// background goroutines. Dispatch returns immediately so the transport
// callback can acknowledge within its deadline; handler work never blocks the
// connection.
type Router struct {
	accountID string
	dedup     *dedup.Cache
	handlers  Handlers

	tasks sync.WaitGroup
}

// NewRouter builds a router for one account.
func NewRouter(accountID string, cache *dedup.Cache, handlers Handlers) *Router {
	if cache == nil {
		cache = dedup.New()
	}
	return &Router{accountID: accountID, dedup: cache, handlers: handlers}
}

// Dispatch routes one decoded event. Duplicate delivery of the same event id
// is dropped before any handler runs.
func (r *Router) Dispatch(ev *Event) {
	if ev == nil {
		return
	}
	if r.dedup.IsProcessed(ev.EventID) {
		slog.Debug("Duplicate event dropped", "account", r.accountID, "event_id", ev.EventID, "kind", ev.Kind)
		return
	}
	switch ev.Kind {
	case KindMessage:
		if r.handlers.Message != nil && ev.Message != nil {
			r.spawn(func(ctx context.Context) { r.handlers.Message(ctx, ev.Message) })
		}
	case KindP2PChatEntered:
		if r.handlers.P2PChatEntered != nil {
			r.spawn(func(ctx context.Context) { r.handlers.P2PChatEntered(ctx, ev.ChatID) })
		}
	case KindMemberAdded:
		if r.handlers.MemberAdded != nil {
			r.spawn(func(ctx context.Context) {
				r.handlers.MemberAdded(ctx, ev.ChatID, ev.NewMemberIDs, ev.NewMemberNames)
			})
		}
	case KindFileCreated, KindFileDeleted, KindFileEdited:
		if r.handlers.FileChanged != nil {
			r.spawn(func(ctx context.Context) { r.handlers.FileChanged(ctx, ev.Kind, ev.Raw) })
		}
	case KindCalendarChanged, KindCalendarEventChanged:
		if r.handlers.CalendarChanged != nil {
			r.spawn(func(ctx context.Context) { r.handlers.CalendarChanged(ctx, ev.Kind, ev.Raw) })
		}
	default:
		slog.Debug("Unrecognized event kind dropped", "account", r.accountID, "event_id", ev.EventID, "kind", ev.Kind)
	}
}

func (r *Router) spawn(fn func(ctx context.Context)) {
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Event handler panicked", "account", r.accountID, "panic", rec)
			}
		}()
		fn(context.Background())
	}()
}

// Wait blocks until all spawned handlers have finished.
func (r *Router) Wait() {
	r.tasks.Wait()
}
