package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender posts messages through the Telegram Bot API.
type TelegramSender struct {
	baseURL  string
	botToken string
	chatID   string
	client   *resty.Client
}

func NewTelegramSender(botToken, chatID string) *TelegramSender {
	return &TelegramSender{
		baseURL:  telegramAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   resty.New().SetTimeout(10 * time.Second),
	}
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) Send(ctx context.Context, message string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"chat_id": t.chatID, "text": message}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API returned %s", resp.Status())
	}
	return nil
}
