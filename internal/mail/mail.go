package mail

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
)

var ErrSendTimeout = errors.New("mail send timed out")

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer, or a log mailer when no SMTP host is configured.
func NewMailer(cfg *config.Config, logger *slog.Logger) Mailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		logger.Warn("smtp host not configured, mail will be written to the log")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(SMTPOptions{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPLogin,
		Password: cfg.SMTPKey,
		SSL:      cfg.SMTPSSL,
		From:     cfg.MailFrom,
		Timeout:  cfg.MailSendTimeout,
	})
}

type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail delivered to log",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
