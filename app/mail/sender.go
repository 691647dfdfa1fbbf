// Package mail delivers transactional email. Messages are rendered from
// embedded HTML templates and handed to a Dispatcher, which queues them and
// reports delivery failures through the log instead of swallowing them.
package mail

import (
	"context"

	"github.com/tivity-app/tivity-api/config"

	"github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender delivers messages over SMTP.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return err
	}
	if err := m.To(msg.To); err != nil {
		return err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.User),
		gomail.WithPassword(s.cfg.Pass),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, m)
}

// LogSender stands in when SMTP is not configured. It logs the message
// instead of delivering it, mirroring the simulation mode of the original
// service.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg *Message) error {
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email simulation: SMTP not configured, message not sent")
	return nil
}

// NewSender picks the SMTP sender when configured and the logging
// simulation otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if cfg.Configured() {
		return NewSMTPSender(cfg)
	}
	logrus.Warn("Email service not configured, emails will not be sent")
	return LogSender{}
}
