package feishu

import (
	"testing"

	larkevent "github.com/larksuite/oapi-sdk-go/v3/event"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

func ptr(s string) *string { return &s }

func sampleMessageEvent() *larkim.P2MessageReceiveV1 {
	return &larkim.P2MessageReceiveV1{
		EventV2Base: &larkevent.EventV2Base{
			Header: &larkevent.EventHeader{EventID: "evt-123"},
		},
		Event: &larkim.P2MessageReceiveV1Data{
			Message: &larkim.EventMessage{
				MessageId:   ptr("om_abc"),
				ChatId:      ptr("oc_chat"),
				ChatType:    ptr("group"),
				MessageType: ptr("text"),
				Content:     ptr(`{"text":"/添加 @Ann"}`),
				Mentions: []*larkim.MentionEvent{
					{Id: &larkim.UserId{OpenId: ptr("ou_ann")}},
					{Id: &larkim.UserId{UserId: ptr("u_bob")}},
					{Id: &larkim.UserId{}},
					nil,
				},
			},
			Sender: &larkim.EventSender{
				SenderId: &larkim.UserId{OpenId: ptr("ou_sender"), UserId: ptr("u_sender")},
			},
		},
	}
}

func TestDecodeMessageEvent(t *testing.T) {
	ev := decodeMessageEvent(sampleMessageEvent())

	if ev.Kind != KindMessage {
		t.Fatalf("kind = %s", ev.Kind)
	}
	if ev.EventID != "evt-123" {
		t.Fatalf("event id = %q", ev.EventID)
	}
	msg := ev.Message
	if msg.MessageID != "om_abc" || msg.ChatID != "oc_chat" || msg.ChatType != "group" {
		t.Fatalf("unexpected message fields: %+v", msg)
	}
	if !msg.HasSender || msg.SenderOpenID != "ou_sender" {
		t.Fatalf("unexpected sender fields: %+v", msg)
	}
	want := []string{"ou_ann", "u_bob"}
	if len(msg.MentionedUserIDs) != len(want) {
		t.Fatalf("mentions = %v, want %v", msg.MentionedUserIDs, want)
	}
	for i, id := range want {
		if msg.MentionedUserIDs[i] != id {
			t.Fatalf("mentions = %v, want %v", msg.MentionedUserIDs, want)
		}
	}
}

func TestDecodeMessageEventMissingSender(t *testing.T) {
	raw := sampleMessageEvent()
	raw.Event.Sender = nil

	ev := decodeMessageEvent(raw)
	if ev.Message.HasSender {
		t.Fatal("missing sender must be reported")
	}
}

func TestDecodeRawEvent(t *testing.T) {
	body := []byte(`{"header":{"event_id":"evt-raw"},"event":{"file_token":"doccnXYZ"}}`)
	ev := decodeRawEvent(KindFileEdited, body)

	if ev.Kind != KindFileEdited || ev.EventID != "evt-raw" {
		t.Fatalf("unexpected decode: %+v", ev)
	}
	if fileNameFromPayload(ev.Raw) != "doccnXYZ" {
		t.Fatalf("file token not extracted from %s", ev.Raw)
	}

	garbage := decodeRawEvent(KindCalendarChanged, []byte(`not json`))
	if garbage.EventID != "" {
		t.Fatal("malformed payload must yield an empty event id")
	}
}
