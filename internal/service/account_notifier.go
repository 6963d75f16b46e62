package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/mail"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

type AccountNotification struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	Link      string
	ExpiresAt time.Time
}

type AccountNotifier interface {
	SendEmailConfirmation(ctx context.Context, n AccountNotification) error
	SendPasswordReset(ctx context.Context, n AccountNotification) error
}

// MailAccountNotifier renders the account templates and hands them to a mailer.
type MailAccountNotifier struct {
	mailer    mail.Mailer
	templates *mail.Templates
	logger    *slog.Logger
}

func NewMailAccountNotifier(mailer mail.Mailer, templates *mail.Templates, logger *slog.Logger) *MailAccountNotifier {
	return &MailAccountNotifier{mailer: mailer, templates: templates, logger: logger}
}

func (n *MailAccountNotifier) SendEmailConfirmation(ctx context.Context, note AccountNotification) error {
	return n.send(ctx, mail.TemplateEmailConfirmation, note)
}

func (n *MailAccountNotifier) SendPasswordReset(ctx context.Context, note AccountNotification) error {
	return n.send(ctx, mail.TemplatePasswordReset, note)
}

func (n *MailAccountNotifier) send(ctx context.Context, template string, note AccountNotification) error {
	start := time.Now()
	msg, err := n.templates.Render(template, note.Email, mail.TemplateData{
		FirstName: note.FirstName,
		Link:      note.Link,
		ExpiresAt: note.ExpiresAt,
	})
	if err != nil {
		observability.RecordMailDelivery(ctx, template, "render_error", time.Since(start))
		return err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		observability.RecordMailDelivery(ctx, template, "failed", time.Since(start))
		n.logger.WarnContext(ctx, "account mail not delivered", "template", template, "user_id", note.UserID, "error", err)
		return err
	}
	observability.RecordMailDelivery(ctx, template, "sent", time.Since(start))
	n.logger.InfoContext(ctx, "account mail delivered", "template", template, "user_id", note.UserID)
	return nil
}
