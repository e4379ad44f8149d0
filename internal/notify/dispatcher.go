package notify

import (
	"context"
	"log/slog"

	"github.com/whalehunter/whale-tracker/internal/config"
)

// Sender delivers one plain-text message over a single channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, message string) error
}

// Dispatcher fans a message out to every configured channel. Each send is
// independent and best-effort: a channel failure is logged and swallowed,
// never surfaced to the caller.
type Dispatcher struct {
	senders []Sender
	logger  *slog.Logger
}

// NewDispatcher builds the channel set from configuration. Channels listed
// without usable credentials are dropped with a warning.
func NewDispatcher(cfg config.AlertConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger.With("component", "notify")}

	for _, channel := range cfg.Channels {
		var s Sender
		switch channel {
		case "telegram":
			if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
				s = NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
			}
		case "discord":
			if cfg.Webhooks.DiscordURL != "" {
				s = NewWebhookSender("discord", cfg.Webhooks.DiscordURL, "content")
			}
		case "slack":
			if cfg.Webhooks.SlackURL != "" {
				s = NewWebhookSender("slack", cfg.Webhooks.SlackURL, "text")
			}
		case "webhook":
			if cfg.Webhooks.GenericURL != "" {
				s = NewWebhookSender("webhook", cfg.Webhooks.GenericURL, "text")
			}
		case "email":
			if cfg.SMTP.Host != "" && cfg.SMTP.User != "" && cfg.SMTP.To != "" {
				s = NewEmailSender(cfg.SMTP)
			}
		}
		if s == nil {
			d.logger.Warn("Alert channel not configured, skipping", "channel", channel)
			continue
		}
		d.senders = append(d.senders, s)
	}
	return d
}

// NewDispatcherWithSenders wires an explicit sender set.
func NewDispatcherWithSenders(logger *slog.Logger, senders ...Sender) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{senders: senders, logger: logger.With("component", "notify")}
}

// Channels returns the names of the active channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.senders))
	for _, s := range d.senders {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch delivers the message to every channel. One channel's failure
// never blocks the others.
func (d *Dispatcher) Dispatch(ctx context.Context, message string) {
	for _, s := range d.senders {
		if err := s.Send(ctx, message); err != nil {
			d.logger.Warn("Alert delivery failed", "channel", s.Name(), "error", err)
		}
	}
}
