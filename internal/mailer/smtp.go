package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTP builds a mailer for addr ("host:port"). user may be empty for
// unauthenticated relays.
func NewSMTP(addr, from, user, password string) *SMTPMailer {
	m := &SMTPMailer{addr: addr, from: from}
	if user != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		m.auth = smtp.PlainAuth("", user, password, host)
	}
	return m
}

func (m *SMTPMailer) SendVerification(_ context.Context, email, link string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verify your PG Pay account\r\n\r\n"+
		"Confirm your email address by opening this link:\r\n\r\n%s\r\n",
		m.from, email, link)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send verification mail to %s: %w", email, err)
	}
	return nil
}
