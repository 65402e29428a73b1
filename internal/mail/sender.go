package mail

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/Jhoe24/maintenance-tracker/internal/config"
)

// Message is one outbound email.
type Message struct {
	To       []string
	Subject  string
	BodyText string
	BodyHTML string
}

// Sender delivers messages to their recipients.
type Sender interface {
	Send(msg Message) error
}

// NewSender selects the backend from configuration: "smtp" for a real
// relay, anything else for the console backend used in development.
func NewSender(cfg config.MailConfig, logger *zap.Logger) Sender {
	if strings.EqualFold(cfg.Backend, "smtp") {
		return NewSMTPSender(cfg)
	}
	return NewConsoleSender(logger)
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds a sender for the configured relay.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the relay and delivers the message.
func (s *SMTPSender) Send(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.BodyText)
	if msg.BodyHTML != "" {
		m.AddAlternative("text/html", msg.BodyHTML)
	}
	return s.dialer.DialAndSend(m)
}

// ConsoleSender logs messages instead of delivering them.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender builds the development backend.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

// Send writes the message to the log.
func (c *ConsoleSender) Send(msg Message) error {
	c.logger.Info("outbound email",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.BodyText))
	return nil
}
