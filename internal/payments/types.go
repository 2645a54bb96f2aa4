package payments

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	Amount   decimal.Decimal
	Memo     string
	Metadata map[string]any
	UserUID  string
}

// Payment is the subset of the provider's payment object this service reads.
// Raw keeps the full body for pass-through responses.
type Payment struct {
	Identifier string
	Amount     decimal.NullDecimal
	Memo       string
	UserUID    string
	Status     json.RawMessage
	Raw        json.RawMessage
}

type providerPayment struct {
	PaymentIdentifier string              `json:"payment_identifier"`
	Identifier        string              `json:"identifier"`
	Amount            decimal.NullDecimal `json:"amount"`
	Memo              string              `json:"memo"`
	UserUID           string              `json:"user_uid"`
	Status            json.RawMessage     `json:"status"`
}

func decodePayment(raw []byte) (*Payment, error) {
	var p providerPayment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	id := p.PaymentIdentifier
	if id == "" {
		id = p.Identifier
	}
	return &Payment{
		Identifier: id,
		Amount:     p.Amount,
		Memo:       p.Memo,
		UserUID:    p.UserUID,
		Status:     p.Status,
		Raw:        json.RawMessage(raw),
	}, nil
}

// StatusText returns the provider status when it is a plain string.
// The platform API reports an object of flags, which yields "".
func (p *Payment) StatusText() string {
	var s string
	if len(p.Status) == 0 || json.Unmarshal(p.Status, &s) != nil {
		return ""
	}
	return s
}

type createPayload struct {
	Payment createBody `json:"payment"`
}

type createBody struct {
	Amount   float64        `json:"amount"`
	Memo     string         `json:"memo"`
	Metadata map[string]any `json:"metadata"`
	UID      string         `json:"uid"`
	Sandbox  bool           `json:"sandbox"`
}

type approvePayload struct {
	Payment approveBody `json:"payment"`
}

type approveBody struct {
	Approved  bool   `json:"approved"`
	Sandbox   bool   `json:"sandbox"`
	Signature string `json:"signature"`
}

type completePayload struct {
	Payment completeBody `json:"payment"`
}

type completeBody struct {
	TxID    string `json:"txid"`
	Sandbox bool   `json:"sandbox"`
}
