package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	SandboxBaseURL    = "https://api.sandbox.minepi.com/v2"
	ProductionBaseURL = "https://api.minepi.com/v2"

	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

type PiConfig struct {
	APIKey    string
	AppSlug   string
	AppDomain string
	Sandbox   bool
	// BaseURL overrides the sandbox/production default.
	BaseURL string
	Timeout time.Duration
}

type PiAdapter struct {
	APIKey    string
	AppSlug   string
	AppDomain string
	Sandbox   bool

	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewPiAdapter(cfg PiConfig) *PiAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PiAdapter{
		APIKey:     cfg.APIKey,
		AppSlug:    cfg.AppSlug,
		AppDomain:  cfg.AppDomain,
		Sandbox:    cfg.Sandbox,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    timeout,
		httpClient: http.DefaultClient,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (p *PiAdapter) WithHTTPClient(c *http.Client) *PiAdapter {
	p.httpClient = c
	return p
}

func (p *PiAdapter) BaseURL() string {
	if p.baseURL != "" {
		return p.baseURL
	}
	if p.Sandbox {
		return SandboxBaseURL
	}
	return ProductionBaseURL
}

func (p *PiAdapter) paymentURL(paymentID string, action string) string {
	u := p.BaseURL() + "/payments/" + url.PathEscape(paymentID)
	if action != "" {
		u += "/" + action
	}
	return u
}

func (p *PiAdapter) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload := createPayload{Payment: createBody{
		Amount:   req.Amount.InexactFloat64(),
		Memo:     req.Memo,
		Metadata: metadata,
		UID:      req.UserUID,
		Sandbox:  p.Sandbox,
	}}

	raw, err := p.do(ctx, OpCreate, http.MethodPost, p.BaseURL()+"/payments", payload)
	if err != nil {
		return nil, err
	}

	pay, err := decodePayment(raw)
	if err != nil {
		return nil, fmt.Errorf("pi create decode: %w body=%s", err, string(raw))
	}
	if pay.Identifier == "" {
		return nil, fmt.Errorf("pi create: response has no payment identifier body=%s", string(raw))
	}
	return pay, nil
}

func (p *PiAdapter) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	raw, err := p.do(ctx, OpLookup, http.MethodGet, p.paymentURL(paymentID, ""), nil)
	if err != nil {
		return nil, err
	}

	pay, err := decodePayment(raw)
	if err != nil {
		return nil, fmt.Errorf("pi lookup decode: %w body=%s", err, string(raw))
	}
	if pay.Identifier == "" {
		pay.Identifier = paymentID
	}
	return pay, nil
}

func (p *PiAdapter) ApprovePayment(ctx context.Context, paymentID, signature string) (json.RawMessage, error) {
	payload := approvePayload{Payment: approveBody{
		Approved:  true,
		Sandbox:   p.Sandbox,
		Signature: signature,
	}}
	return p.do(ctx, OpApprove, http.MethodPost, p.paymentURL(paymentID, "approve"), payload)
}

func (p *PiAdapter) CompletePayment(ctx context.Context, paymentID, txid string) (json.RawMessage, error) {
	payload := completePayload{Payment: completeBody{
		TxID:    txid,
		Sandbox: p.Sandbox,
	}}
	return p.do(ctx, OpComplete, http.MethodPost, p.paymentURL(paymentID, "complete"), payload)
}

func (p *PiAdapter) do(ctx context.Context, op Op, method, endpoint string, payload any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("pi %s encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("pi %s request: %w", op, err)
	}
	httpReq.Header.Set("Authorization", "Key "+p.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if p.AppSlug != "" {
		httpReq.Header.Set("X-App-Slug", p.AppSlug)
	}
	if p.AppDomain != "" {
		httpReq.Header.Set("X-App-Domain", p.AppDomain)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Op: op, After: p.timeout, Err: err}
		}
		return nil, fmt.Errorf("pi %s request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Op: op, After: p.timeout, Err: err}
		}
		return nil, fmt.Errorf("pi %s read: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newProviderError(op, resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	return json.RawMessage(raw), nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
