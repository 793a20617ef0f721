package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pulseplatform/pulse/internal/notifications"
)

// DiscordConfig holds configuration for a Discord webhook channel.
type DiscordConfig struct {
	WebhookURL string `json:"webhook_url"`
	Username   string `json:"username,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// DiscordNotifier delivers failure alerts to a Discord webhook.
type DiscordNotifier struct {
	config DiscordConfig
	client *http.Client
}

func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

// Send posts a red embed describing the failing source.
func (d *DiscordNotifier) Send(event notifications.AlertEvent) error {
	if d.config.WebhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	const colorRed = 0xFF0000

	fields := []map[string]interface{}{
		{"name": "Tenant", "value": event.TenantSlug, "inline": true},
		{"name": "Source", "value": event.SourceID, "inline": true},
		{"name": "Consecutive failures", "value": fmt.Sprintf("%d", event.ConsecutiveFailures), "inline": true},
	}

	embed := map[string]interface{}{
		"title":       fmt.Sprintf("Source %s failing", event.SourceID),
		"description": event.Message,
		"color":       colorRed,
		"timestamp":   event.At.Format(time.RFC3339),
		"fields":      fields,
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	if d.config.Username != "" {
		payload["username"] = d.config.Username
	}
	if d.config.AvatarURL != "" {
		payload["avatar_url"] = d.config.AvatarURL
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := d.client.Post(d.config.WebhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	return nil
}
