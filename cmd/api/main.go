package main

import (
	"context"
	"errors"
	"expvar"
	"io/fs"
	"log"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pipay/internal/config"
	"pipay/internal/domain/checkout"
	"pipay/internal/domain/webhooks"
	"pipay/internal/events"
	"pipay/internal/payments"
	"pipay/internal/ratelimiter"
	"pipay/internal/signing"
	"pipay/internal/store"
)

// NewLogger creates a new zap logger, coloured console output in development
// and JSON in production.
func NewLogger(level zapcore.Level, production bool) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if production {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)

	return zap.New(core).Sugar()
}

func newPublisher(cfg config.Config, logger *zap.SugaredLogger) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NewLogPublisher(logger)
	}
	logger.Infow("publishing payment events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
}

var version = "1.0.0"

//	@title			Pi Payments API
//	@description	Server-side bridge for Pi Network app-to-user payments.

//	@BasePath	/api

func main() {
	// .env is optional; real deployments pass the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Logger
	logger := NewLogger(cfg.Level(), cfg.IsProduction())
	defer logger.Sync()

	if !cfg.HasProviderConfig() {
		logger.Warn("PI_API_KEY or PI_APP_PRIV_KEY is not set, payment endpoints will fail")
	}

	// Signing key
	signer := signing.New(cfg.Pi.PrivateKey)
	if signer.Configured() {
		if signer.Strategy() == "" {
			for _, a := range signer.Attempts() {
				logger.Warnw("private key strategy failed", "strategy", a.Strategy, "error", a.Err)
			}
		} else {
			logger.Infow("private key loaded", "strategy", signer.Strategy())
		}
	}

	//storage
	storage := store.NewStorage()

	gateway := payments.NewPiAdapter(cfg.PaymentsConfig())
	publisher := newPublisher(cfg, logger)

	svc := checkout.NewService(gateway, signer, storage.Payments, publisher, logger)
	reconciler := webhooks.NewReconciler(svc, storage.Payments, publisher, logger, cfg.ReconcilerConfig())

	// Rate limiter
	var limiter ratelimiter.Limiter
	if cfg.RateLimiter.Enabled {
		limiter = ratelimiter.NewFixedWindowLimiter(
			cfg.RateLimiter.RequestsPerTimeFrame,
			cfg.RateLimiter.TimeFrame,
		)
	}

	app := &application{
		config:      cfg,
		store:       storage,
		logger:      logger,
		checkout:    svc,
		reconciler:  reconciler,
		publisher:   publisher,
		rateLimiter: limiter,
	}

	//Metrics collected at {API_BASE_PATH}/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("cached_payments", expvar.Func(func() any {
		return storage.Payments.Count(context.Background())
	}))
	expvar.Publish("webhooks", expvar.Func(func() any {
		return reconciler.Stats()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	logger.Infow("pi payments configured",
		"environment", cfg.Environment(),
		"apiBase", gateway.BaseURL(),
		"appSlug", cfg.Pi.AppSlug,
		"autoApprove", cfg.Pi.AutoApprove,
	)

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
