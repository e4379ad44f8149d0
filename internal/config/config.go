package config

import (
	"errors"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Interval string `mapstructure:"interval" validate:"omitempty,interval"`
	HTTPPort int    `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`

	DefaultNativeThreshold string `mapstructure:"default_native_threshold" validate:"omitempty,decimal"`
	DefaultStableThreshold string `mapstructure:"default_stable_threshold" validate:"omitempty,decimal"`

	Chains map[string]ChainConfig `mapstructure:"chains" validate:"dive"`
	Alerts AlertConfig            `mapstructure:"alerts"`
}

// ChainConfig describes one network in the chain registry. A chain with an
// empty rpc_url stays in the registry but is excluded from scanning.
type ChainConfig struct {
	RPCUrl    string        `mapstructure:"rpc_url" validate:"omitempty,url"`
	RateLimit time.Duration `mapstructure:"rate_limit" validate:"omitempty,min=0"`
	Tokens    []TokenConfig `mapstructure:"tokens" validate:"dive"`
}

// TokenConfig represents a single token contract on a chain. Decimals come
// from configuration, never from on-chain metadata.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol" validate:"required,min=1,max=16"`
	Address  string `mapstructure:"address" validate:"required,eth_addr"`
	Decimals uint8  `mapstructure:"decimals" validate:"max=30"`
}

// AlertConfig groups the notification channel set and per-channel credentials
type AlertConfig struct {
	Channels []string       `mapstructure:"channels" validate:"dive,oneof=telegram discord slack webhook email"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhooks WebhookConfig  `mapstructure:"webhooks"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type WebhookConfig struct {
	DiscordURL string `mapstructure:"discord_url" validate:"omitempty,url"`
	SlackURL   string `mapstructure:"slack_url" validate:"omitempty,url"`
	GenericURL string `mapstructure:"generic_url" validate:"omitempty,url"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	To       string `mapstructure:"to" validate:"omitempty,email"`
}

// ScannableChains returns the chain names with a configured RPC endpoint,
// i.e. the chains a scan cycle will actually visit.
func (c *Config) ScannableChains() []string {
	names := make([]string, 0, len(c.Chains))
	for name, chain := range c.Chains {
		if chain.RPCUrl != "" {
			names = append(names, name)
		}
	}
	return names
}

// NativeThreshold returns the default native-coin alert threshold.
func (c *Config) NativeThreshold() decimal.Decimal {
	return parseDecimal(c.DefaultNativeThreshold, "0.001")
}

// StableThreshold returns the default stable-token alert threshold.
func (c *Config) StableThreshold() decimal.Decimal {
	return parseDecimal(c.DefaultStableThreshold, "100")
}

func parseDecimal(s, fallback string) decimal.Decimal {
	if s == "" {
		s = fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}

// cronPattern matches cron expressions (5 or 6 fields)
var cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

// ValidateInterval accepts a duration string ("60s", "5m") or a 5/6-field
// cron expression. Empty means one-shot mode and is valid.
func ValidateInterval(s string) error {
	if s == "" {
		return nil
	}
	if cronPattern.MatchString(s) {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("interval must be a duration or cron expression")
	}
	if d < time.Second {
		return errors.New("interval must be at least 1s")
	}
	return nil
}

// IsCronInterval reports whether the interval is a cron expression rather
// than a plain duration.
func IsCronInterval(s string) bool {
	return cronPattern.MatchString(s)
}

// ethAddressValidator validates Ethereum addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// decimalValidator validates exact-decimal strings
func decimalValidator(fl validator.FieldLevel) bool {
	_, err := decimal.NewFromString(fl.Field().String())
	return err == nil
}

// intervalValidator validates the scan interval setting
func intervalValidator(fl validator.FieldLevel) bool {
	return ValidateInterval(fl.Field().String()) == nil
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("decimal", decimalValidator)
	validate.RegisterValidation("interval", intervalValidator)
	return validate
}
