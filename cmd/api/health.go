package main

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status      string    `json:"status"`
	Environment string    `json:"environment"`
	HasConfig   bool      `json:"hasConfig"`
	AppSlug     string    `json:"appSlug"`
	Domain      string    `json:"domain"`
	AutoApprove bool      `json:"autoApprove"`
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthCheck godoc
//
//	@Summary		Healthcheck
//	@Description	Reports liveness and whether provider credentials are configured.
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	healthResponse
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := healthResponse{
		Status:      "ok",
		Environment: app.config.Environment(),
		HasConfig:   app.config.HasProviderConfig(),
		AppSlug:     app.config.Pi.AppSlug,
		Domain:      app.config.Pi.AppDomain,
		AutoApprove: app.config.Pi.AutoApprove,
		Version:     version,
		Timestamp:   time.Now().UTC(),
	}

	if err := writeJSON(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}
