package bus

import (
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
)

func TestPublishSyncProgressDeliversOnTenantChannel(t *testing.T) {
	b := New(nil)
	tenant, err := tenantctx.New("t1", "acme")
	if err != nil {
		t.Fatalf("tenantctx.New: %v", err)
	}
	sub := b.Subscribe(ChannelName(tenant.Slug), nil)

	b.PublishSyncProgress(tenant, "jira-1", 40, "pulling work items", "running")

	select {
	case msg := <-sub.Ch:
		if msg.SourceID != "jira-1" || msg.Progress != 40 || msg.Status != "running" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a message to be delivered")
	}
}

func TestPublishAlertDeliversOnTenantChannel(t *testing.T) {
	b := New(nil)
	tenant, err := tenantctx.New("t1", "acme")
	if err != nil {
		t.Fatalf("tenantctx.New: %v", err)
	}
	sub := b.Subscribe(ChannelName(tenant.Slug), nil)

	b.PublishAlert(tenant, "jira-1", "3 consecutive failures")

	select {
	case msg := <-sub.Ch:
		if msg.Status != "alert" || msg.SourceID != "jira-1" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a message to be delivered")
	}
}

func TestPublishAIProgressUsesInsightReadyAtFullPercent(t *testing.T) {
	b := New(nil)
	tenant, err := tenantctx.New("t1", "acme")
	if err != nil {
		t.Fatalf("tenantctx.New: %v", err)
	}
	sub := b.Subscribe(ChannelName(tenant.Slug), nil)

	b.PublishAIProgress(tenant, "proj-1", 60, "Calling insight provider...")
	b.PublishAIProgress(tenant, "proj-1", 100, "Insight ready")

	first := <-sub.Ch
	if first.Type != MessageAIInsightProgress || first.Progress != 60 {
		t.Errorf("expected ai_insight_progress at 60%%, got %+v", first)
	}

	second := <-sub.Ch
	if second.Type != MessageInsightReady {
		t.Errorf("expected insight_ready at 100%%, got %+v", second)
	}
}
