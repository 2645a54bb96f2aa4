package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"pipay/internal/config"
	"pipay/internal/domain/checkout"
	"pipay/internal/domain/webhooks"
	"pipay/internal/events"
	"pipay/internal/ratelimiter"
	"pipay/internal/store"
)

type application struct {
	config      config.Config
	store       store.Storage
	logger      *zap.SugaredLogger
	checkout    *checkout.Service
	reconciler  *webhooks.Reconciler
	publisher   events.Publisher
	rateLimiter ratelimiter.Limiter
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	routes := func(r chi.Router) {
		// provider deliveries are always acknowledged
		r.Post("/pi-webhook", app.piWebhookHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.RateLimiterMiddleware)

			r.Get("/health", app.healthCheckHandler)
			r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

			r.Post("/create-payment", app.createPaymentHandler)
			r.Post("/approve-payment", app.approvePaymentHandler)
			r.Post("/complete-payment", app.completePaymentHandler)

			r.Get("/payment/{paymentId}", app.getPaymentHandler)
			r.Get("/payments", app.listPaymentsHandler)
		})
	}

	if app.config.APIBasePath == "" {
		routes(r)
	} else {
		r.Route(app.config.APIBasePath, routes)
	}
	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.Addr,
		Handler:      mux,
		WriteTimeout: time.Second * 90,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- app.shutdown(ctx, srv)
	}()

	app.logger.Infow("server has started", "addr", app.config.Addr, "env", app.config.Env, "basePath", app.config.APIBasePath)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.Addr, "env", app.config.Env)

	return nil
}

// shutdown stops the listener first, then drains scheduled webhook work and
// flushes the event publisher.
func (app *application) shutdown(ctx context.Context, srv *http.Server) error {
	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := app.reconciler.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain webhooks: %w", err))
	}
	if err := app.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if stopper, ok := app.rateLimiter.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	return errors.Join(errs...)
}
