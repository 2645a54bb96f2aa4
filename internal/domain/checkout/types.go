package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pipay/internal/store"
)

var ErrMissingAmount = errors.New("unable to resolve payment amount")

// ValidationError is a caller mistake: a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Signer produces the approval signature for a payment and amount.
type Signer interface {
	Sign(paymentID string, amount decimal.Decimal) (string, error)
}

type CreateInput struct {
	Amount   decimal.Decimal
	Memo     string
	UserUID  string
	Metadata map[string]any
}

func (in CreateInput) Validate() error {
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be a positive number")
	}
	if strings.TrimSpace(in.Memo) == "" {
		return invalid("memo", "is required")
	}
	if strings.TrimSpace(in.UserUID) == "" {
		return invalid("userUid", "is required")
	}
	return nil
}

type CreateResult struct {
	PaymentID string
	Amount    decimal.Decimal
	Memo      string
	// ProviderStatus is the provider's status field, passed through untouched.
	ProviderStatus json.RawMessage
	UserUID        string
	Record         store.PaymentRecord
}

// AmountSource records where Approve found the amount it signed.
type AmountSource string

const (
	AmountFromHint     AmountSource = "hint"
	AmountFromCache    AmountSource = "cache"
	AmountFromProvider AmountSource = "provider"
)

type ApproveResult struct {
	PaymentID    string
	Signature    string
	Amount       decimal.Decimal
	AmountSource AmountSource
	Provider     json.RawMessage
}

type CompleteResult struct {
	PaymentID string
	TxID      string
	Provider  json.RawMessage
}

type LookupSource string

const (
	LookupCache    LookupSource = "cache"
	LookupProvider LookupSource = "provider"
	LookupUnknown  LookupSource = "unknown"
)

// UnknownPayment is returned when neither the cache nor the provider know the id.
type UnknownPayment struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

type LookupResult struct {
	Source LookupSource
	Record *store.PaymentRecord
	Remote json.RawMessage
	Miss   *UnknownPayment
}

// Data is the value rendered to clients for this lookup.
func (r LookupResult) Data() any {
	switch r.Source {
	case LookupCache:
		return r.Record
	case LookupProvider:
		return r.Remote
	default:
		return r.Miss
	}
}
