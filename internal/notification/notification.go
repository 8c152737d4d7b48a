package notification

import (
	"context"
	"log/slog"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
)

const (
	// KindPaymentReceived tells a recipient that funds landed in their wallet.
	KindPaymentReceived = "payment_received"
	// KindPaymentFailed tells a payer their settlement did not go through.
	KindPaymentFailed = "payment_failed"
	// KindAccountsLinked tells both parties that two platform accounts merged.
	KindAccountsLinked = "accounts_linked"
)

// Message describes an event pushed back to a platform gateway for delivery.
type Message struct {
	Kind     string
	UserID   int64
	Platform identity.Platform
	Body     string
}

// Notifier delivers notifications to the platform gateways.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"user_id", message.UserID,
		"platform", string(message.Platform),
		"body", message.Body,
	)
	return nil
}
