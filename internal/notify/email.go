package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// sender is the part of *gomail.Dialer the notifier needs.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends each notification as a plain-text e-mail.
type EmailNotifier struct {
	cfg    EmailConfig
	dialer sender
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// RequestPermission grants delivery only when the SMTP host, sender and
// recipient are all configured.
func (n *EmailNotifier) RequestPermission(context.Context) (bool, error) {
	return n.cfg.Host != "" && n.cfg.From != "" && n.cfg.To != "", nil
}

func (n *EmailNotifier) Show(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification e-mail: %w", err)
	}
	return nil
}
