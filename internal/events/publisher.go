package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TypePaymentCreated   = "payment.created"
	TypePaymentApproved  = "payment.approved"
	TypePaymentCompleted = "payment.completed"
	// TypeWebhookPrefix is prepended to provider event names.
	TypeWebhookPrefix = "webhook."
)

// Event is a payment lifecycle change observed by this service.
type Event struct {
	ID         string          `json:"event_id"`
	Type       string          `json:"event_type"`
	PaymentID  string          `json:"payment_id"`
	Status     string          `json:"status,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	TxID       string          `json:"txid,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent stamps an event with a fresh ID and the given time.
func NewEvent(typ, paymentID string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		PaymentID:  paymentID,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers lifecycle events. Delivery is best-effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the application log only.
type LogPublisher struct {
	logger *zap.SugaredLogger
}

func NewLogPublisher(logger *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.Infow("payment event",
		"eventId", e.ID,
		"type", e.Type,
		"paymentId", e.PaymentID,
		"status", e.Status,
		"amount", e.Amount.String(),
		"txid", e.TxID,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
