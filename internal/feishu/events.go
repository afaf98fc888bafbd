package feishu

import (
	"encoding/json"

	larkevent "github.com/larksuite/oapi-sdk-go/v3/event"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// EventKind tags the closed set of recognized event categories.
type EventKind string

const (
	KindMessage              EventKind = "message"
	KindP2PChatEntered       EventKind = "p2p_chat_entered"
	KindMemberAdded          EventKind = "member_added"
	KindFileCreated          EventKind = "file_created"
	KindFileDeleted          EventKind = "file_deleted"
	KindFileEdited           EventKind = "file_edited"
	KindCalendarChanged      EventKind = "calendar_changed"
	KindCalendarEventChanged EventKind = "calendar_event_changed"
	KindUnrecognized         EventKind = "unrecognized"
)

// Event is the tagged union handed to the router. Exactly the fields for the
// tagged kind are populated; unknown payloads keep their raw JSON.
type Event struct {
	Kind    EventKind
	EventID string

	Message *MessageEvent

	// Membership and chat-entry events.
	ChatID         string
	NewMemberIDs   []string
	NewMemberNames []string

	// Raw payload for transport-owned shapes (file and calendar events).
	Raw json.RawMessage
}

// MessageEvent is the validated shape of a message-received event.
type MessageEvent struct {
	MessageID        string
	ChatID           string
	ChatType         string
	MessageType      string
	Content          string
	SenderOpenID     string
	SenderUserID     string
	MentionedUserIDs []string
	HasSender        bool
}

func headerEventID(base *larkevent.EventV2Base) string {
	if base == nil || base.Header == nil {
		return ""
	}
	return base.Header.EventID
}

// decodeMessageEvent converts the SDK message event into the tagged union.
func decodeMessageEvent(event *larkim.P2MessageReceiveV1) *Event {
	out := &Event{Kind: KindMessage, EventID: headerEventID(event.EventV2Base)}
	msg := &MessageEvent{}
	out.Message = msg
	if event.Event == nil {
		return out
	}
	if raw := event.Event.Message; raw != nil {
		msg.MessageID = deref(raw.MessageId)
		msg.ChatID = deref(raw.ChatId)
		msg.ChatType = deref(raw.ChatType)
		msg.MessageType = deref(raw.MessageType)
		msg.Content = deref(raw.Content)
		msg.MentionedUserIDs = mentionedUserIDs(raw.Mentions)
	}
	if sender := event.Event.Sender; sender != nil {
		msg.HasSender = true
		if sender.SenderId != nil {
			msg.SenderOpenID = deref(sender.SenderId.OpenId)
			msg.SenderUserID = deref(sender.SenderId.UserId)
		}
	}
	return out
}

// mentionedUserIDs collects the mention entries that carry a resolvable user
// identifier, wherever they appear in the text.
func mentionedUserIDs(mentions []*larkim.MentionEvent) []string {
	if len(mentions) == 0 {
		return nil
	}
	var ids []string
	for _, m := range mentions {
		if m == nil || m.Id == nil {
			continue
		}
		id := deref(m.Id.OpenId)
		if id == "" {
			id = deref(m.Id.UserId)
		}
		if id == "" {
			id = deref(m.Id.UnionId)
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// decodeP2PChatEntered converts the bot-p2p-chat-entered event.
func decodeP2PChatEntered(event *larkim.P2ChatAccessEventBotP2pChatEnteredV1) *Event {
	out := &Event{Kind: KindP2PChatEntered, EventID: headerEventID(event.EventV2Base)}
	if event.Event != nil {
		out.ChatID = deref(event.Event.ChatId)
	}
	return out
}

// decodeMemberAdded converts the user-added-to-group event.
func decodeMemberAdded(event *larkim.P2ChatMemberUserAddedV1) *Event {
	out := &Event{Kind: KindMemberAdded, EventID: headerEventID(event.EventV2Base)}
	if event.Event == nil {
		return out
	}
	out.ChatID = deref(event.Event.ChatId)
	for _, user := range event.Event.Users {
		if user == nil {
			continue
		}
		name := deref(user.Name)
		id := ""
		if user.UserId != nil {
			id = deref(user.UserId.OpenId)
			if id == "" {
				id = deref(user.UserId.UserId)
			}
		}
		if id == "" && name == "" {
			continue
		}
		out.NewMemberIDs = append(out.NewMemberIDs, id)
		out.NewMemberNames = append(out.NewMemberNames, name)
	}
	return out
}

// decodeRawEvent converts an untyped event body. The event id is pulled from
// the v2 header; the payload stays opaque.
func decodeRawEvent(kind EventKind, body []byte) *Event {
	out := &Event{Kind: kind, Raw: json.RawMessage(body)}
	var envelope struct {
		Header struct {
			EventID string `json:"event_id"`
		} `json:"header"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		out.EventID = envelope.Header.EventID
	}
	return out
}
