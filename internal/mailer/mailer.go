// Package mailer sends account emails. Delivery is a collaborator, not a
// feature: the interface is the contract and implementations stay thin.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Mailer sends the email-verification message.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
}

// LogMailer writes the verification link to the log instead of sending
// mail. Used when SMTP is not configured (local development).
type LogMailer struct {
	Log *zap.Logger
}

var _ Mailer = LogMailer{}

func (m LogMailer) SendVerification(_ context.Context, email, link string) error {
	m.Log.Info("verification mail (smtp not configured)",
		zap.String("email", email),
		zap.String("link", link),
	)
	return nil
}
