package notify

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/whalehunter/whale-tracker/internal/config"
)

const emailSubject = "Whale Alert"

// EmailSender delivers alerts over SMTP with STARTTLS.
type EmailSender struct {
	cfg config.SMTPConfig
}

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (e *EmailSender) Name() string { return "email" }

func (e *EmailSender) Send(_ context.Context, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.User)
	m.SetHeader("To", e.cfg.To)
	m.SetHeader("Subject", emailSubject)
	m.SetBody("text/plain", message)

	d := gomail.NewDialer(e.cfg.Host, e.cfg.Port, e.cfg.User, e.cfg.Password)
	return d.DialAndSend(m)
}
