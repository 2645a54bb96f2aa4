package main

import (
	"errors"
	"io"
	"net/http"
	"time"

	"pipay/internal/domain/webhooks"
)

type webhookAck struct {
	Received  bool   `json:"received"`
	Event     string `json:"event"`
	PaymentID string `json:"paymentId"`
	Error     string `json:"error,omitempty"`
}

// PiWebhook godoc
//
//	@Summary		Receive a provider notification
//	@Description	Always acknowledges with 200, then reconciles the payment record in the background.
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	webhookAck
//	@Router			/pi-webhook [post]
func (app *application) piWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, readErr := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(maxBodyBytes)))
	paymentMetrics.Add("webhooks_received", 1)

	n := webhooks.Parse(body, time.Now())
	app.logger.Infow("webhook received", "deliveryId", n.DeliveryID, "event", n.Event, "paymentId", n.PaymentID)

	ack := webhookAck{Received: true, Event: n.Event, PaymentID: n.PaymentID}
	if readErr != nil {
		ack.Error = "could not read request body"
		app.logger.Warnw("webhook body unreadable", "deliveryId", n.DeliveryID, "error", readErr.Error())
	}

	if err := writeJSON(w, http.StatusOK, ack); err != nil {
		app.logger.Warnw("webhook acknowledgment failed", "deliveryId", n.DeliveryID, "error", err.Error())
	}
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		app.logger.Debugw("webhook flush failed", "deliveryId", n.DeliveryID, "error", err.Error())
	}

	if readErr != nil {
		return
	}
	if err := app.reconciler.Schedule(n); err != nil {
		app.logger.Warnw("webhook not scheduled", "deliveryId", n.DeliveryID, "paymentId", n.PaymentID, "error", err.Error())
	}
}
