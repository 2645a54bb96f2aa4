package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"pipay/internal/config"
	"pipay/internal/domain/checkout"
	"pipay/internal/domain/webhooks"
	"pipay/internal/events"
	"pipay/internal/payments/mocks"
	"pipay/internal/ratelimiter"
	"pipay/internal/signing"
	"pipay/internal/store"
)

type testApp struct {
	*application
	gateway *mocks.PaymentGateway
	key     *ecdsa.PrivateKey
}

func newTestConfig(t *testing.T) (config.Config, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	material := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))

	return config.Config{
		Addr:            ":0",
		Env:             "test",
		APIBasePath:     "/api",
		ShutdownTimeout: time.Second,
		AllowedOrigins:  []string{"*"},
		Pi: config.PiConfig{
			APIKey:     "test-key",
			PrivateKey: material,
			AppSlug:    "demo-app",
			AppDomain:  "demo.example",
			Sandbox:    true,
			Timeout:    time.Second,
		},
		Webhook: config.WebhookConfig{Timeout: time.Second},
	}, key
}

func newTestApplication(t *testing.T, cfg config.Config, key *ecdsa.PrivateKey) *testApp {
	t.Helper()

	logger := zap.NewNop().Sugar()
	gateway := mocks.NewPaymentGateway(t)
	storage := store.NewStorage()
	publisher := events.NewLogPublisher(logger)

	svc := checkout.NewService(gateway, signing.New(cfg.Pi.PrivateKey), storage.Payments, publisher, logger)
	reconciler := webhooks.NewReconciler(svc, storage.Payments, publisher, logger, cfg.ReconcilerConfig())

	var limiter ratelimiter.Limiter
	if cfg.RateLimiter.Enabled {
		fw := ratelimiter.NewFixedWindowLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
		t.Cleanup(fw.Stop)
		limiter = fw
	}

	return &testApp{
		application: &application{
			config:      cfg,
			store:       storage,
			logger:      logger,
			checkout:    svc,
			reconciler:  reconciler,
			publisher:   publisher,
			rateLimiter: limiter,
		},
		gateway: gateway,
		key:     key,
	}
}

func executeRequest(req *http.Request, mux http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func checkResponseCode(t *testing.T, expected, actual int) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected response code %d, got %d", expected, actual)
	}
}
