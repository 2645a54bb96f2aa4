package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pipay/internal/domain/checkout"
	"pipay/internal/store"
)

type CreatePaymentPayload struct {
	Amount   decimal.NullDecimal `json:"amount"`
	Memo     string              `json:"memo" validate:"required,max=255"`
	UserUID  string              `json:"userUid" validate:"required"`
	Metadata map[string]any      `json:"metadata"`
}

type createdPayment struct {
	Identifier string          `json:"identifier"`
	Amount     decimal.Decimal `json:"amount"`
	Memo       string          `json:"memo"`
	Status     any             `json:"status"`
	UserUIDRaw string          `json:"user_uid"`
	UserUID    string          `json:"userUid"`
}

type createPaymentResponse struct {
	Success bool           `json:"success"`
	Payment createdPayment `json:"payment"`
}

// CreatePayment godoc
//
//	@Summary		Create a payment
//	@Description	Creates an app-to-user payment with the provider and caches it locally.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreatePaymentPayload	true	"Payment details"
//	@Success		200		{object}	createPaymentResponse
//	@Failure		400		{object}	errorEnvelope	"Missing or invalid fields"
//	@Failure		500		{object}	errorEnvelope	"Provider or server error"
//	@Router			/create-payment [post]
func (app *application) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreatePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	in := checkout.CreateInput{
		Amount:   payload.Amount.Decimal,
		Memo:     payload.Memo,
		UserUID:  payload.UserUID,
		Metadata: payload.Metadata,
	}
	if err := in.Validate(); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if !app.requireProviderKey(w, r) {
		return
	}

	res, err := app.checkout.Create(r.Context(), in)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	paymentMetrics.Add("created", 1)

	var status any = store.StatusCreated
	if len(res.ProviderStatus) > 0 && string(res.ProviderStatus) != "null" {
		status = res.ProviderStatus
	}

	writeJSON(w, http.StatusOK, createPaymentResponse{
		Success: true,
		Payment: createdPayment{
			Identifier: res.PaymentID,
			Amount:     res.Amount,
			Memo:       res.Memo,
			Status:     status,
			UserUIDRaw: res.UserUID,
			UserUID:    res.UserUID,
		},
	})
}

type ApprovePaymentPayload struct {
	PaymentID string              `json:"paymentId" validate:"required"`
	Amount    decimal.NullDecimal `json:"amount"`
}

type approvePaymentResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// ApprovePayment godoc
//
//	@Summary		Approve a payment
//	@Description	Resolves the payment amount, signs "{paymentId}_{amount}" and submits the approval to the provider.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ApprovePaymentPayload	true	"Payment id and optional amount"
//	@Success		200		{object}	approvePaymentResponse
//	@Failure		400		{object}	errorEnvelope	"Missing payment id or unresolved amount"
//	@Failure		500		{object}	errorEnvelope	"Signing or provider failure"
//	@Failure		504		{object}	errorEnvelope	"Provider timeout"
//	@Router			/approve-payment [post]
func (app *application) approvePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload ApprovePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if !app.requireProviderKey(w, r) {
		return
	}

	res, err := app.checkout.Approve(r.Context(), payload.PaymentID, payload.Amount)
	if err != nil {
		paymentMetrics.Add("approval_failures", 1)
		app.errorResponse(w, r, err)
		return
	}
	paymentMetrics.Add("approved", 1)

	writeJSON(w, http.StatusOK, approvePaymentResponse{
		Success:   true,
		Message:   "payment approved",
		PaymentID: res.PaymentID,
		Signature: res.Signature,
	})
}

type CompletePaymentPayload struct {
	PaymentID string `json:"paymentId" validate:"required"`
	TxID      string `json:"txid" validate:"required"`
}

type completePaymentResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"paymentId"`
	TxID      string `json:"txid"`
}

// CompletePayment godoc
//
//	@Summary		Complete a payment
//	@Description	Reports the blockchain transaction id to the provider and marks the payment completed.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CompletePaymentPayload	true	"Payment id and transaction id"
//	@Success		200		{object}	completePaymentResponse
//	@Failure		400		{object}	errorEnvelope	"Missing fields"
//	@Failure		500		{object}	errorEnvelope	"Provider failure"
//	@Failure		504		{object}	errorEnvelope	"Provider timeout"
//	@Router			/complete-payment [post]
func (app *application) completePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload CompletePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if !app.requireProviderKey(w, r) {
		return
	}

	res, err := app.checkout.Complete(r.Context(), payload.PaymentID, payload.TxID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	paymentMetrics.Add("completed", 1)

	writeJSON(w, http.StatusOK, completePaymentResponse{
		Success:   true,
		Message:   "payment completed",
		PaymentID: res.PaymentID,
		TxID:      res.TxID,
	})
}

// GetPayment godoc
//
//	@Summary		Look up a payment
//	@Description	Returns the cached record, the provider's view, or an "unknown" placeholder.
//	@Tags			Payments
//	@Produce		json
//	@Param			paymentId	path		string	true	"Payment identifier"
//	@Success		200			{object}	store.PaymentRecord
//	@Failure		500			{object}	errorEnvelope	"Lookup failure"
//	@Failure		504			{object}	errorEnvelope	"Provider timeout"
//	@Router			/payment/{paymentId} [get]
func (app *application) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")

	res, err := app.checkout.Lookup(r.Context(), paymentID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, res.Data()); err != nil {
		app.internalServerError(w, r, err)
	}
}

type listPaymentsResponse struct {
	Success  bool                           `json:"success"`
	Count    int                            `json:"count"`
	Payments map[string]store.PaymentRecord `json:"payments"`
}

// ListPayments godoc
//
//	@Summary		List cached payments
//	@Description	Debug view of every payment record held in memory.
//	@Tags			Payments
//	@Produce		json
//	@Success		200	{object}	listPaymentsResponse
//	@Router			/payments [get]
func (app *application) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	all, err := app.checkout.List(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listPaymentsResponse{
		Success:  true,
		Count:    len(all),
		Payments: all,
	})
}
