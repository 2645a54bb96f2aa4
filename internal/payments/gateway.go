package payments

import (
	"context"
	"encoding/json"
)

// PaymentGateway is the remote provider boundary. Every call is bounded by the
// adapter's timeout and fails with *TimeoutError or *ProviderError.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	ApprovePayment(ctx context.Context, paymentID, signature string) (json.RawMessage, error)
	CompletePayment(ctx context.Context, paymentID, txid string) (json.RawMessage, error)
}
