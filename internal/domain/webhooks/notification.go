package webhooks

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const (
	EventPaymentCreated   = "payment.created"
	EventPaymentCompleted = "payment.completed"
)

// Notification is one inbound provider webhook delivery.
type Notification struct {
	DeliveryID string
	Event      string
	PaymentID  string
	Amount     decimal.NullDecimal
	Status     string
	Data       map[string]any
	ReceivedAt time.Time
}

// Parse decodes a webhook body without ever failing. Anything missing or
// malformed simply leaves the matching field empty.
func Parse(body []byte, receivedAt time.Time) Notification {
	n := Notification{
		DeliveryID: uuid.NewString(),
		ReceivedAt: receivedAt,
	}

	var envelope map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return n
	}

	n.Event = strings.TrimSpace(cast.ToString(envelope["event"]))
	n.Data = cast.ToStringMap(envelope["data"])

	n.PaymentID = strings.TrimSpace(cast.ToString(n.Data["payment_identifier"]))
	if n.PaymentID == "" {
		n.PaymentID = strings.TrimSpace(cast.ToString(n.Data["identifier"]))
	}
	n.Status = strings.TrimSpace(cast.ToString(n.Data["status"]))

	if raw := cast.ToString(n.Data["amount"]); raw != "" {
		if amount, err := decimal.NewFromString(raw); err == nil {
			n.Amount = decimal.NewNullDecimal(amount)
		}
	}
	return n
}

// TargetStatus is the status a reconciliation writes: the provider's status
// string when given, otherwise the event name.
func (n Notification) TargetStatus() string {
	if n.Status != "" {
		return n.Status
	}
	return n.Event
}
