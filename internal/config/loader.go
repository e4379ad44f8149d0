package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "60s")
	v.SetDefault("http_port", 8080)
	v.SetDefault("default_native_threshold", "0.001")
	v.SetDefault("default_stable_threshold", "100")
	v.SetDefault("alerts.channels", []string{"telegram"})
	v.SetDefault("alerts.smtp.port", 587)

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("WHALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials come from the environment in deployments
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("interval", "SCAN_INTERVAL")
	v.BindEnv("http_port", "HTTP_PORT")
	v.BindEnv("alerts.channels", "ALERT_CHANNELS")
	v.BindEnv("alerts.telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("alerts.telegram.chat_id", "TELEGRAM_CHAT_ID")
	v.BindEnv("alerts.webhooks.discord_url", "DISCORD_WEBHOOK_URL")
	v.BindEnv("alerts.webhooks.slack_url", "SLACK_WEBHOOK_URL")
	v.BindEnv("alerts.webhooks.generic_url", "GENERIC_WEBHOOK_URL")
	v.BindEnv("alerts.smtp.host", "EMAIL_SMTP_HOST")
	v.BindEnv("alerts.smtp.port", "EMAIL_SMTP_PORT")
	v.BindEnv("alerts.smtp.user", "EMAIL_USER")
	v.BindEnv("alerts.smtp.password", "EMAIL_PASS")
	v.BindEnv("alerts.smtp.to", "EMAIL_TO")

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated ALERT_CHANNELS env var
	if channels := v.GetString("alerts.channels"); strings.Contains(channels, ",") {
		parts := strings.Split(channels, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.Alerts.Channels = parts
	}

	// 6. Validate with validator
	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with DATABASE_URL from environment
func LoadWithDefaults(configPath string) (*Config, string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}

	// DATABASE_URL is required
	v := viper.New()
	v.BindEnv("database_url", "DATABASE_URL")
	databaseURL := v.GetString("database_url")

	if databaseURL == "" {
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, databaseURL, nil
}
