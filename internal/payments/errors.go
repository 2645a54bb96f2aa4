package payments

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Op string

const (
	OpCreate   Op = "create"
	OpLookup   Op = "lookup"
	OpApprove  Op = "approve"
	OpComplete Op = "complete"
)

// ProviderError is a non-2xx answer from the provider. Op distinguishes the
// remote approval, completion, lookup and creation failures.
type ProviderError struct {
	Op         Op
	StatusCode int
	Message    string
	Payload    json.RawMessage
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pi %s failed: http=%d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pi %s failed: http=%d", e.Op, e.StatusCode)
}

func newProviderError(op Op, status int, raw []byte) *ProviderError {
	e := &ProviderError{Op: op, StatusCode: status}

	body := strings.TrimSpace(string(raw))
	if body == "" {
		return e
	}
	if !json.Valid([]byte(body)) {
		e.Message = body
		e.Payload, _ = json.Marshal(body)
		return e
	}
	e.Payload = json.RawMessage(body)

	var fields struct {
		Error        any    `json:"error"`
		ErrorMessage string `json:"error_message"`
		Message      string `json:"message"`
	}
	if json.Unmarshal([]byte(body), &fields) == nil {
		switch {
		case fields.ErrorMessage != "":
			e.Message = fields.ErrorMessage
		case fields.Message != "":
			e.Message = fields.Message
		case fields.Error != nil:
			e.Message = fmt.Sprint(fields.Error)
		}
	}
	return e
}

// TimeoutError means the provider never answered, as opposed to answering no.
type TimeoutError struct {
	Op    Op
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pi %s: no answer within %s", e.Op, e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Timeout() bool { return true }
