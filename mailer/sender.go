// Package mailer renders and sends the transactional order emails
// through the Resend API.
package mailer

import (
	"context"
	"fmt"

	"popart_backend/logging"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers one message and returns the provider's message ID.
// Tests substitute a fake; delivery retries are the provider's
// responsibility.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// ResendSender is the live Sender backed by the Resend API.
type ResendSender struct {
	client *resend.Client
	logger *logging.Logger
}

// NewResendSender creates a Sender for the given API key.
func NewResendSender(apiKey string, logger *logging.Logger) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("mailer: Resend API key is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		logger: logger.Named("resend"),
	}, nil
}

// Send delivers one email.
func (s *ResendSender) Send(ctx context.Context, msg *Message) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("mailer: send failed: %w", err)
	}

	s.logger.Debug("email sent",
		zap.String("message_id", sent.Id),
		zap.String("subject", msg.Subject))
	return sent.Id, nil
}
