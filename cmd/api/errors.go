package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"pipay/internal/domain/checkout"
	"pipay/internal/payments"
	"pipay/internal/signing"

	"github.com/go-playground/validator/v10"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", retryAfter)

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter)
}

func (app *application) missingConfigResponse(w http.ResponseWriter, r *http.Request, name string) {
	app.logger.Errorw("server misconfigured", "method", r.Method, "path", r.URL.Path, "missing", name)

	writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("server configuration error: %s is not set", name))
}

func (app *application) signingErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("signing error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "failed to sign payment approval")
}

func (app *application) gatewayTimeoutResponse(w http.ResponseWriter, r *http.Request, err *payments.TimeoutError) {
	app.logger.Errorw("provider timeout", "method", r.Method, "path", r.URL.Path, "op", err.Op, "after", err.After.String())

	writeJSONError(w, http.StatusGatewayTimeout, fmt.Sprintf("payment provider did not answer the %s request in time", err.Op))
}

// providerErrorResponse mirrors the provider's own error status and echoes its body.
func (app *application) providerErrorResponse(w http.ResponseWriter, r *http.Request, err *payments.ProviderError) {
	app.logger.Errorw("provider error", "method", r.Method, "path", r.URL.Path, "op", err.Op, "status", err.StatusCode, "error", err.Error())

	status := err.StatusCode
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}

	reason := err.Message
	if reason == "" {
		reason = http.StatusText(err.StatusCode)
	}
	if reason == "" {
		reason = "unknown error"
	}

	var details any
	if len(err.Payload) > 0 {
		details = json.RawMessage(err.Payload)
	}
	writeJSONErrorDetails(w, status, fmt.Sprintf("payment %s failed: %s", err.Op, reason), details)
}

// errorResponse maps a domain or provider error onto its HTTP response.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *checkout.ValidationError
		fieldErrs     validator.ValidationErrors
		timeoutErr    *payments.TimeoutError
		providerErr   *payments.ProviderError
		signingErr    *signing.Error
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs):
		app.badRequestResponse(w, r, err)
	case errors.As(err, &timeoutErr):
		app.gatewayTimeoutResponse(w, r, timeoutErr)
	case errors.Is(err, checkout.ErrMissingAmount):
		app.badRequestResponse(w, r, err)
	case errors.As(err, &providerErr):
		app.providerErrorResponse(w, r, providerErr)
	case errors.Is(err, signing.ErrNoKey), errors.As(err, &signingErr):
		app.signingErrorResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
