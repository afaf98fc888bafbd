package timeline

import (
	"path/filepath"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(filepath.Join(t.TempDir(), "activity.db"))
	if err != nil {
		t.Fatalf("open activity db: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestLastActivityEmpty(t *testing.T) {
	svc := newTestService(t)
	act, err := svc.LastActivity("default")
	if err != nil {
		t.Fatalf("last activity: %v", err)
	}
	if act.LastInboundAt != nil || act.LastOutboundAt != nil {
		t.Fatalf("expected no activity, got %+v", act)
	}
}

func TestRecordAndQueryActivity(t *testing.T) {
	svc := newTestService(t)
	if err := svc.RecordInbound("default", "oc_1", "message", "t1"); err != nil {
		t.Fatalf("record inbound: %v", err)
	}
	if err := svc.RecordOutbound("default", "oc_1", "t1"); err != nil {
		t.Fatalf("record outbound: %v", err)
	}
	if err := svc.RecordInbound("other", "oc_2", "message", "t2"); err != nil {
		t.Fatalf("record inbound: %v", err)
	}

	act, err := svc.LastActivity("default")
	if err != nil {
		t.Fatalf("last activity: %v", err)
	}
	if act.LastInboundAt == nil || act.LastOutboundAt == nil {
		t.Fatalf("expected both directions recorded, got %+v", act)
	}

	other, err := svc.LastActivity("other")
	if err != nil {
		t.Fatalf("last activity: %v", err)
	}
	if other.LastOutboundAt != nil {
		t.Fatal("accounts must not share activity rows")
	}
}
