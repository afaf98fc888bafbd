package feishu

import (
	"context"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkevent "github.com/larksuite/oapi-sdk-go/v3/event"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Subscribed customized event types without typed SDK bindings.
const (
	eventFileCreated          = "drive.file.created_in_folder_v1"
	eventFileDeleted          = "drive.file.trashed_v1"
	eventFileEdited           = "drive.file.edit_v1"
	eventCalendarChanged      = "calendar.calendar.changed_v4"
	eventCalendarEventChanged = "calendar.calendar.event.changed_v4"
)

type wsStream struct {
	client *larkws.Client
}

func (s *wsStream) Start(ctx context.Context) error {
	return s.client.Start(ctx)
}

// NewStream builds the persistent websocket connection for one account with
// all subscribed events routed through the router. Each dispatcher callback
// only decodes and dispatches; it returns before any handler work runs.
func NewStream(appID, appSecret, baseDomain string, router *Router) Stream {
	handler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			router.Dispatch(decodeMessageEvent(event))
			return nil
		}).
		OnP2ChatAccessEventBotP2pChatEnteredV1(func(ctx context.Context, event *larkim.P2ChatAccessEventBotP2pChatEnteredV1) error {
			router.Dispatch(decodeP2PChatEntered(event))
			return nil
		}).
		OnP2ChatMemberUserAddedV1(func(ctx context.Context, event *larkim.P2ChatMemberUserAddedV1) error {
			router.Dispatch(decodeMemberAdded(event))
			return nil
		}).
		OnCustomizedEvent(eventFileCreated, rawDispatch(router, KindFileCreated)).
		OnCustomizedEvent(eventFileDeleted, rawDispatch(router, KindFileDeleted)).
		OnCustomizedEvent(eventFileEdited, rawDispatch(router, KindFileEdited)).
		OnCustomizedEvent(eventCalendarChanged, rawDispatch(router, KindCalendarChanged)).
		OnCustomizedEvent(eventCalendarEventChanged, rawDispatch(router, KindCalendarEventChanged))

	opts := []larkws.ClientOption{
		larkws.WithEventHandler(handler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	}
	if baseDomain != "" {
		opts = append(opts, larkws.WithDomain(baseDomain))
	}
	return &wsStream{client: larkws.NewClient(appID, appSecret, opts...)}
}

func rawDispatch(router *Router, kind EventKind) func(ctx context.Context, event *larkevent.EventReq) error {
	return func(ctx context.Context, event *larkevent.EventReq) error {
		var body []byte
		if event != nil {
			body = event.Body
		}
		router.Dispatch(decodeRawEvent(kind, body))
		return nil
	}
}
