package events

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes events to the structured log. It is the default sink
// when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("events")}
}

func (n *LogNotifier) Publish(_ context.Context, e Event) error {
	n.logger.Info("transaction event",
		zap.String("event_type", e.EventType),
		zap.String("transaction_id", e.TransactionID),
		zap.String("reference", e.Reference),
		zap.String("kind", e.Kind),
		zap.String("status", e.Status),
		zap.String("amount", e.Amount),
		zap.String("sender_id", e.SenderID),
		zap.String("receiver_id", e.ReceiverID),
		zap.String("error", e.ErrorMessage),
	)
	return nil
}
