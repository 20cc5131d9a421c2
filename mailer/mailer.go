package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"popart_backend/core"
	"popart_backend/logging"
	"popart_backend/payments"

	"go.uber.org/zap"
)

// Mailer builds and sends the order notification emails. It implements
// payments.OrderNotifier.
type Mailer struct {
	sender     Sender
	from       string
	systemFrom string
	adminEmail string
	logger     *logging.Logger
}

// Config holds the sender addresses for a Mailer.
type Config struct {
	// From is the customer-facing sender, e.g. "PopArt.ee <orders@popart.ee>".
	From string

	// SystemFrom is the sender for internal notifications.
	SystemFrom string

	// AdminEmail receives the new-order notifications.
	AdminEmail string
}

// NewMailer creates a Mailer over the given sender. Empty address fields
// fall back to the built-in defaults.
func NewMailer(sender Sender, cfg Config, logger *logging.Logger) (*Mailer, error) {
	if sender == nil {
		return nil, fmt.Errorf("mailer: sender cannot be nil")
	}
	if cfg.From == "" {
		cfg.From = core.DefaultMailFrom
	}
	if cfg.SystemFrom == "" {
		cfg.SystemFrom = core.DefaultMailSystemFrom
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = core.DefaultAdminEmail
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Mailer{
		sender:     sender,
		from:       cfg.From,
		systemFrom: cfg.SystemFrom,
		adminEmail: cfg.AdminEmail,
		logger:     logger.Named("mailer"),
	}, nil
}

// SendCustomerConfirmation emails the customer their order summary.
func (m *Mailer) SendCustomerConfirmation(ctx context.Context, order *payments.CompletedOrder) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("mailer: order has no customer email")
	}

	var b strings.Builder
	b.WriteString("<h1>Thank you for your order!</h1>")
	fmt.Fprintf(&b, "<p>We've received your request for a <strong>%s</strong> digital painting.</p>",
		html.EscapeString(order.Size))
	b.WriteString("<p>Our team is currently preparing your masterpiece. You will receive the high-resolution file soon.</p>")
	fmt.Fprintf(&b, `<img src="%s" alt="Your Selection" style="max-width: 300px; border-radius: 10px;" />`,
		html.EscapeString(order.ImageURL))
	fmt.Fprintf(&b, "<p>Order Total: €%s</p>", FormatEuros(order.AmountTotal))

	id, err := m.sender.Send(ctx, &Message{
		From:    m.from,
		To:      []string{order.CustomerEmail},
		Subject: "Your PopArt.ee Order Confirmation",
		HTML:    b.String(),
	})
	if err != nil {
		return err
	}

	m.logger.Info("customer confirmation sent",
		zap.String("message_id", id),
		zap.String("to", order.CustomerEmail))
	return nil
}

// SendAdminNotification emails the shop about a new order.
func (m *Mailer) SendAdminNotification(ctx context.Context, order *payments.CompletedOrder) error {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>New Order for %s</h1>", html.EscapeString(order.Size))
	fmt.Fprintf(&b, "<p>Customer: %s</p>", html.EscapeString(order.CustomerEmail))
	fmt.Fprintf(&b, `<p>Image URL: <a href="%s">%s</a></p>`,
		html.EscapeString(order.ImageURL), html.EscapeString(order.ImageURL))
	fmt.Fprintf(&b, "<p>Total: €%s</p>", FormatEuros(order.AmountTotal))

	if s := order.Shipping; s.FullName != "" || s.Address != "" {
		b.WriteString("<h2>Shipping</h2>")
		fmt.Fprintf(&b, "<p>%s<br/>%s %s<br/>%s</p>",
			html.EscapeString(s.FullName),
			html.EscapeString(s.Address),
			html.EscapeString(s.PostalCode),
			html.EscapeString(s.Phone))
	}

	id, err := m.sender.Send(ctx, &Message{
		From:    m.systemFrom,
		To:      []string{m.adminEmail},
		Subject: "New Order Received!",
		HTML:    b.String(),
	})
	if err != nil {
		return err
	}

	m.logger.Info("admin notification sent", zap.String("message_id", id))
	return nil
}

// SendTestEmail sends a configuration check message. An empty recipient
// defaults to the admin address.
func (m *Mailer) SendTestEmail(ctx context.Context, to string) (string, error) {
	if to == "" {
		to = m.adminEmail
	}

	var b strings.Builder
	b.WriteString("<h1>Test Email</h1>")
	b.WriteString("<p>This is a test email to verify that email sending is working correctly.</p>")
	b.WriteString("<p>If you received this, email sending is configured properly!</p>")
	fmt.Fprintf(&b, "<p>Time: %s</p>", time.Now().UTC().Format(time.RFC3339))

	return m.sender.Send(ctx, &Message{
		From:    m.systemFrom,
		To:      []string{to},
		Subject: "Test Email from PopArt.ee",
		HTML:    b.String(),
	})
}

// FormatEuros renders an amount in minor units as a euro figure, with
// cents only when they are non-zero ("55" and "55.50", never "55.00").
func FormatEuros(minorUnits int64) string {
	if minorUnits%100 == 0 {
		return fmt.Sprintf("%d", minorUnits/100)
	}
	return fmt.Sprintf("%d.%02d", minorUnits/100, minorUnits%100)
}
