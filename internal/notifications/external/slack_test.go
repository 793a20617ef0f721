package external

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/notifications"
)

func TestSlackNotifierSendsExpectedPayload(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL, Channel: "#alerts", Username: "pulse"})
	err := n.Send(notifications.AlertEvent{
		TenantSlug:          "acme",
		SourceID:            "jira-1",
		Message:             "3 consecutive failures",
		ConsecutiveFailures: 3,
		At:                  time.Unix(100, 0),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if received["channel"] != "#alerts" {
		t.Errorf("expected channel #alerts, got %v", received["channel"])
	}
	attachments, ok := received["attachments"].([]interface{})
	if !ok || len(attachments) != 1 {
		t.Fatalf("expected one attachment, got %v", received["attachments"])
	}
	attachment := attachments[0].(map[string]interface{})
	if attachment["color"] != "danger" {
		t.Errorf("expected danger color, got %v", attachment["color"])
	}
}

func TestSlackNotifierRequiresWebhookURL(t *testing.T) {
	n := NewSlackNotifier(SlackConfig{})
	if err := n.Send(notifications.AlertEvent{SourceID: "jira-1"}); err == nil {
		t.Fatal("expected error for missing webhook URL")
	}
}

func TestSlackNotifierPropagatesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL})
	if err := n.Send(notifications.AlertEvent{SourceID: "jira-1"}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
