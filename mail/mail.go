// Package mail delivers outgoing messages. The core only depends on the
// Sender interface; the SMTP implementation is wired in at startup and an
// unconfigured instance falls back to logging the mail.
package mail

import (
	"fmt"
	"net/smtp"

	"github.com/mbolis/schroedinger/config"
	"github.com/mbolis/schroedinger/log"
)

type Sender interface {
	Send(to, subject, body string) error
}

func New(cfg config.Config) Sender {
	if cfg.SMTPHost == "" {
		return logSender{}
	}
	return &smtpSender{
		addr:   cfg.SMTPHost + ":" + cfg.SMTPPort,
		sender: cfg.SMTPSender,
		auth:   smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost),
	}
}

type smtpSender struct {
	addr   string
	sender string
	auth   smtp.Auth
}

func (s *smtpSender) Send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		to, s.sender, subject, body,
	))
	if err := smtp.SendMail(s.addr, s.auth, s.sender, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type logSender struct{}

func (logSender) Send(to, subject, body string) error {
	log.Infof("mail.send (SMTP not configured): to=%s subject=%q body=%q", to, subject, body)
	return nil
}
