// Package config loads the daemon's YAML configuration file the way the
// teacher's internal/server.loadNotificationConfig loads teams.yaml: a
// best-effort os.ReadFile + yaml.Unmarshal, overlaid with environment
// variables so a container deployment never needs the file at all.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pulseplatform/pulse/internal/types"
)

// Config is cmd/pulse's top-level configuration.
type Config struct {
	DatabaseURL           string                      `yaml:"database_url"`
	NATSURL               string                      `yaml:"nats_url"`
	ListenAddr            string                      `yaml:"listen_addr"`
	TenantDomainSuffix    string                      `yaml:"tenant_domain_suffix"`
	AuthSecret            string                      `yaml:"auth_secret"`
	FailureAlertThreshold int                         `yaml:"failure_alert_threshold"`
	AIDefaults            map[types.AIProvider]string `yaml:"ai_defaults"`
	Notifications         types.NotificationsConfig   `yaml:"notifications"`
}

// Default returns the configuration assumed absent overrides.
func Default() Config {
	return Config{
		DatabaseURL:           "pulse.db",
		NATSURL:               "nats://127.0.0.1:4222",
		ListenAddr:            ":8080",
		FailureAlertThreshold: types.DefaultFailureAlertThreshold,
	}
}

// Load reads path (if present) over Default(), then applies the
// environment variables required at minimum: DATABASE_URL,
// REDIS_URL (mapped onto NATSURL — this repo's actual broker),
// AI_API_KEY, TENANT_DOMAIN_SUFFIX. A missing file at
// path is not an error; missing env vars simply leave the YAML/default
// value in place.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// no config file; defaults + env vars only
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("config: auth_secret (YAML) or AUTH_SECRET (env) is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := os.Getenv("TENANT_DOMAIN_SUFFIX"); v != "" {
		cfg.TenantDomainSuffix = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		if cfg.AIDefaults == nil {
			cfg.AIDefaults = map[types.AIProvider]string{}
		}
		cfg.AIDefaults[types.AIProviderGemini] = v
		cfg.AIDefaults[types.AIProviderKimi] = v
	}
}
