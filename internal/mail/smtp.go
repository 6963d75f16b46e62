package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
	From     string
	Timeout  time.Duration
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers messages synchronously. A send that outlives the timeout or the
// caller's context is reported as failed; the dial keeps running until the server answers.
type SMTPMailer struct {
	dialer  sender
	from    string
	timeout time.Duration
}

func NewSMTPMailer(opts SMTPOptions) *SMTPMailer {
	d := gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password)
	d.SSL = opts.SSL
	return newSMTPMailer(d, opts.From, opts.Timeout)
}

func newSMTPMailer(d sender, from string, timeout time.Duration) *SMTPMailer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPMailer{dialer: d, from: from, timeout: timeout}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		gm.SetBody("text/plain", msg.Text)
		if msg.HTML != "" {
			gm.AddAlternative("text/html", msg.HTML)
		}
	} else {
		gm.SetBody("text/html", msg.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(gm)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrSendTimeout, ctx.Err())
	}
}
