package feishu

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBroadcastPartialFailure(t *testing.T) {
	m := &fakeMessenger{
		chats:   []string{"oc_a", "oc_b", "oc_c"},
		sendErr: map[string]error{"oc_b": errors.New("bot not in chat")},
	}

	res := Broadcast(context.Background(), m, "notice")

	if res.SuccessCount != 2 || res.FailedCount != 1 {
		t.Fatalf("got %d/%d, want 2 successes and 1 failure", res.SuccessCount, res.FailedCount)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "oc_b") {
		t.Fatalf("error entry must name the failed destination, got %v", res.Errors)
	}
}

func TestBroadcastListFailure(t *testing.T) {
	m := &fakeMessenger{listErr: errors.New("unauthorized")}

	res := Broadcast(context.Background(), m, "notice")
	if res.SuccessCount != 0 || res.FailedCount != 0 || len(res.Errors) != 1 {
		t.Fatalf("list failure should yield a single error, got %+v", res)
	}
}

func TestBroadcastNoChats(t *testing.T) {
	m := &fakeMessenger{}

	res := Broadcast(context.Background(), m, "notice")
	if res.SuccessCount != 0 || res.FailedCount != 0 || len(res.Errors) != 0 {
		t.Fatalf("empty chat list should be a clean no-op, got %+v", res)
	}
}
