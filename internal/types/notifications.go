package types

// NotificationsConfig configures which external channels receive a
// failure-alert-threshold notification. The Progress Bus alert always
// fires; this config additionally fans it out to channels a human watches
// outside the dashboard. Email delivery is out of scope.
type NotificationsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack incoming-webhook settings.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Username   string `yaml:"username"`
}

// DiscordConfig holds Discord incoming-webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Username   string `yaml:"username"`
}
