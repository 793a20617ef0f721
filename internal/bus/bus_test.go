package bus

import (
	"testing"
	"time"
)

func TestSubscribeAndPublishDeliversToMatchingChannel(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe("telemetry_acme", nil)

	b.Publish("telemetry_acme", Message{Type: MessageSyncProgress, Progress: 20})

	select {
	case msg := <-sub.Ch:
		if msg.Progress != 20 {
			t.Errorf("expected progress 20, got %d", msg.Progress)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a message to be delivered")
	}
}

func TestPublishDoesNotLeakAcrossChannels(t *testing.T) {
	b := New(nil)
	acmeSub := b.Subscribe("telemetry_acme", nil)
	betaSub := b.Subscribe("telemetry_beta", nil)

	b.Publish("telemetry_acme", Message{Type: MessageSyncProgress, ProjectID: "p1"})

	select {
	case <-acmeSub.Ch:
	case <-time.After(time.Second):
		t.Fatal("expected acme subscriber to receive the message")
	}

	select {
	case msg := <-betaSub.Ch:
		t.Fatalf("beta subscriber must not receive acme's message, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionTypeFilterExcludesOtherTypes(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe("telemetry_acme", []MessageType{MessageInsightReady})

	b.Publish("telemetry_acme", Message{Type: MessageSyncProgress})
	b.Publish("telemetry_acme", Message{Type: MessageInsightReady, InsightID: "ins-1"})

	select {
	case msg := <-sub.Ch:
		if msg.Type != MessageInsightReady {
			t.Errorf("expected only insight_ready to pass the filter, got %s", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the filtered message to arrive")
	}

	select {
	case msg := <-sub.Ch:
		t.Fatalf("expected no second message past the filter, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannelAndStopsDelivery(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe("telemetry_acme", nil)
	b.Unsubscribe(sub)

	if _, ok := <-sub.Ch; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}

	b.Publish("telemetry_acme", Message{Type: MessageSyncProgress})
}

func TestPublishDropsWhenSubscriberBufferIsFull(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe("telemetry_acme", nil)

	for i := 0; i < subscriberBufferSize+maxBackpressureRetries+1; i++ {
		b.Publish("telemetry_acme", Message{Type: MessageSyncProgress, Progress: i})
	}

	if b.DroppedCount() == 0 {
		t.Error("expected at least one dropped message once the buffer overflows")
	}
}

func TestAdminBusPublishesOnlyToAdminChannel(t *testing.T) {
	a := NewAdminBus(nil)
	sub := a.Subscribe()

	a.Publish(AdminMessage{Type: AdminMessageHealthUpdate, Tenants: 3, At: time.Now()})

	select {
	case msg := <-sub.Ch:
		if msg.Type != MessageType(AdminMessageHealthUpdate) {
			t.Errorf("expected health_update, got %s", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the admin message to be delivered")
	}
}
