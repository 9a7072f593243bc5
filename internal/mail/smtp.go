package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// SSL selects implicit TLS (usually port 465). When false the dialer
	// still upgrades with STARTTLS if the server offers it.
	SSL      bool
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPSender delivers messages through an SMTP relay.
//
// A new connection is dialled per message. FoodShare sends a handful of
// emails per registration or assignment, so a pooled daemon connection
// would only add reconnect handling.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTPSender validates cfg and builds the dialer.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: SMTP host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("mail: invalid SMTP port %d", cfg.Port)
	}
	if cfg.From == "" {
		return nil, errors.New("mail: sender address is required")
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	d.Timeout = cfg.Timeout
	if d.Timeout == 0 {
		d.Timeout = 10 * time.Second
	}

	return &SMTPSender{dialer: d, from: cfg.From, fromName: cfg.FromName}, nil
}

// Send dials the relay and delivers msg. gomail has no context support, so
// ctx is only checked before dialling; the dialer timeout bounds the rest.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail: sending %q: %w", msg.Subject, err)
	}
	if err := s.dialer.DialAndSend(s.buildMessage(msg)); err != nil {
		return fmt.Errorf("mail: sending %q to %s: %w", msg.Subject, msg.To, err)
	}
	return nil
}

// buildMessage converts msg into a multipart/alternative MIME message.
func (s *SMTPSender) buildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}
