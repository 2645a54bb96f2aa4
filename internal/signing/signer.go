package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrNoKey = errors.New("signing: no private key configured")

// Error is returned when no strategy could produce a usable key, or when the
// decoded key failed to sign.
type Error struct {
	PaymentID string
	Attempts  []Attempt
	Err       error
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
		}
	}
	msg := fmt.Sprintf("signing payment %s failed", e.PaymentID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(parts) > 0 {
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the canonical text the provider verifies approvals against.
func Message(paymentID string, amount decimal.Decimal) string {
	return paymentID + "_" + amount.String()
}

type Signer struct {
	material   string
	strategies []Strategy
	key        *ecdsa.PrivateKey
	used       string
	attempts   []Attempt
}

// New decodes the key material once. An unusable key is not an error here;
// Sign reports it on every call so the service can still boot and serve health.
func New(material string) *Signer {
	return NewWithStrategies(material, DefaultStrategies)
}

func NewWithStrategies(material string, strategies []Strategy) *Signer {
	s := &Signer{material: strings.TrimSpace(material), strategies: strategies}
	if s.material == "" {
		return s
	}
	s.key, s.attempts = DecodeKey(s.material, strategies)
	if s.key != nil {
		s.used = s.attempts[len(s.attempts)-1].Strategy
	}
	return s
}

// Configured reports whether any key material was supplied.
func (s *Signer) Configured() bool { return s.material != "" }

// Strategy names the decoding strategy that produced the key, or "" if none did.
func (s *Signer) Strategy() string { return s.used }

// Attempts returns the outcome of each decoding strategy tried at construction.
func (s *Signer) Attempts() []Attempt {
	out := make([]Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// Sign returns the base64 ASN.1 ECDSA/SHA-256 signature of Message(paymentID, amount).
// Nonces are derived per RFC 6979, so a fixed key yields a fixed signature.
// Key material that failed to decode at construction is reported on every call.
func (s *Signer) Sign(paymentID string, amount decimal.Decimal) (string, error) {
	if !s.Configured() {
		return "", ErrNoKey
	}
	if s.key == nil {
		return "", &Error{PaymentID: paymentID, Attempts: s.Attempts(), Err: errors.New("no usable private key")}
	}

	digest := sha256.Sum256([]byte(Message(paymentID, amount)))
	sig, err := s.key.Sign(nil, digest[:], crypto.SHA256)
	if err != nil {
		return "", &Error{PaymentID: paymentID, Attempts: s.Attempts(), Err: err}
	}
	if len(sig) == 0 {
		return "", &Error{PaymentID: paymentID, Attempts: s.Attempts(), Err: errors.New("empty signature")}
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
