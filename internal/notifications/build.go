package notifications

import (
	"github.com/pulseplatform/pulse/internal/notifications/external"
	"github.com/pulseplatform/pulse/internal/types"
)

// BuildRouter turns a tenant's notifications config into a Router with one
// Channel per enabled external destination. Disabled or unconfigured
// destinations are silently skipped.
func BuildRouter(cfg types.NotificationsConfig) *Router {
	var channels []Channel

	if cfg.Slack.Enabled && cfg.Slack.WebhookURL != "" {
		channels = append(channels, external.NewSlackNotifier(external.SlackConfig{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
		}))
	}

	if cfg.Discord.Enabled && cfg.Discord.WebhookURL != "" {
		channels = append(channels, external.NewDiscordNotifier(external.DiscordConfig{
			WebhookURL: cfg.Discord.WebhookURL,
			Username:   cfg.Discord.Username,
		}))
	}

	return NewRouter(channels)
}
