package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pulseplatform/pulse/internal/notifications"
)

// SlackConfig holds configuration for a Slack webhook channel.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
}

// SlackNotifier delivers failure alerts to a Slack incoming webhook.
type SlackNotifier struct {
	config SlackConfig
	client *http.Client
}

func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

// Send posts a red attachment describing the failing source. Every event
// this package handles is already a failure, so there is no color to branch on.
func (s *SlackNotifier) Send(event notifications.AlertEvent) error {
	if s.config.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	fields := []map[string]interface{}{
		{"title": "Tenant", "value": event.TenantSlug, "short": true},
		{"title": "Source", "value": event.SourceID, "short": true},
		{"title": "Consecutive failures", "value": fmt.Sprintf("%d", event.ConsecutiveFailures), "short": true},
	}

	payload := map[string]interface{}{
		"text": fmt.Sprintf("Sync alert: %s", event.Message),
		"attachments": []map[string]interface{}{
			{
				"color":  "danger",
				"title":  fmt.Sprintf("Source %s failing", event.SourceID),
				"fields": fields,
				"ts":     event.At.Unix(),
			},
		},
	}

	if s.config.Channel != "" {
		payload["channel"] = s.config.Channel
	}
	if s.config.Username != "" {
		payload["username"] = s.config.Username
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := s.client.Post(s.config.WebhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}
	return nil
}
